package repositorycache

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-cacherepo/cache"
)

// IdentifierLocator returns the primary id of an entity as a cache key component.
type IdentifierLocator[T any] func(entity T) (string, error)

// ResolveIdentifier looks up the id field of T once and returns a locator
// for it. The first exported field matching Id, <TypeName>Id or EntityId,
// compared case-insensitively and in that order, wins. Promoted fields of
// embedded structs are considered.
func ResolveIdentifier[T any]() (IdentifierLocator[T], error) {
	rt := baseType[T]()
	if rt.Kind() != reflect.Struct {
		return nil, &MissingIdentifierError{Type: typeName[T]()}
	}

	index, ok := findIDField(rt)
	if !ok {
		return nil, &MissingIdentifierError{Type: rt.Name()}
	}

	return func(entity T) (string, error) {
		rv := reflect.ValueOf(entity)
		for rv.Kind() == reflect.Ptr {
			if rv.IsNil() {
				return "", errors.Newf("repositorycache: nil %s", rt.Name())
			}
			rv = rv.Elem()
		}
		field, err := rv.FieldByIndexErr(index)
		if err != nil {
			return "", errors.Wrapf(err, "repositorycache: reading id of %s", rt.Name())
		}
		return cache.FormatID(field.Interface()), nil
	}, nil
}

// DefaultIdentifierLocator returns the discovered locator for T, or one that
// fails every call with *MissingIdentifierError when T has no id field.
func DefaultIdentifierLocator[T any]() IdentifierLocator[T] {
	locator, err := ResolveIdentifier[T]()
	if err != nil {
		return func(T) (string, error) { return "", err }
	}
	return locator
}

func findIDField(rt reflect.Type) ([]int, bool) {
	candidates := []string{"Id", rt.Name() + "Id", "EntityId"}
	fields := reflect.VisibleFields(rt)
	for _, candidate := range candidates {
		for _, f := range fields {
			if f.Anonymous || !f.IsExported() {
				continue
			}
			if strings.EqualFold(f.Name, candidate) {
				return f.Index, true
			}
		}
	}
	return nil, false
}

func baseType[T any]() reflect.Type {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt
}

func typeName[T any]() string {
	rt := baseType[T]()
	if rt.Name() != "" {
		return rt.Name()
	}
	return rt.String()
}
