package repositorycache

import "github.com/cockroachdb/errors"

// ErrMissingIdentifier is matched by every *MissingIdentifierError.
var ErrMissingIdentifier = errors.New("missing entity identifier")

// MissingIdentifierError reports an entity type without a discoverable or
// configured primary id.
type MissingIdentifierError struct {
	Type string
}

func (e *MissingIdentifierError) Error() string {
	return "repositorycache: no identifier for type " + e.Type +
		" (expected a field named Id, " + e.Type + "Id or EntityId, or WithIdentifierLocator)"
}

func (e *MissingIdentifierError) Is(target error) bool { return target == ErrMissingIdentifier }
