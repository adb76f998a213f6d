package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

const (
	partitionKeyPrefix = "Partition"
	timeoutKeySuffix   = "TimeoutItems"
	customIndexPrefix  = "CustomIndexFor"
	coldStartPrefix    = "LastToGetAllFor"

	// AllPartitionsKey holds the set of every partition key ever written to.
	AllPartitionsKey = "AllPartitionNames"
)

// ComposePartitionKey returns the key of the hash that stores a partition's items.
func ComposePartitionKey(partition string) string {
	return partitionKeyPrefix + KeySeparator + partition
}

// ComposeTimeoutPartitionKey returns the key of the hash holding expiry
// deadlines for a partition's items.
func ComposeTimeoutPartitionKey(partition string) string {
	return ComposePartitionKey(partition) + KeySeparator + timeoutKeySuffix
}

// PartitionNameFromKey reverses ComposePartitionKey.
func PartitionNameFromKey(key string) string {
	return strings.TrimPrefix(key, partitionKeyPrefix+KeySeparator)
}

// ComposeKeyForCustomIndex returns the storage key of a secondary index entry.
// The name and value are hashed together with SHA-256 so arbitrary values
// produce bounded, printable keys. Empty inputs yield "".
func ComposeKeyForCustomIndex(indexName, indexValue string) string {
	if indexName == "" || indexValue == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(indexName + KeySeparator + indexValue))
	return customIndexPrefix + KeySeparator + hex.EncodeToString(sum[:])
}

// ComposeColdStartKey returns the marker key recording that a full load was
// requested for typeName.
func ComposeColdStartKey(typeName string) string {
	return coldStartPrefix + KeySeparator + typeName
}

// FormatID renders an identifier value as a cache key.
//
// Strings are used verbatim, fmt.Stringer values through String, pointers
// are dereferenced and basic kinds use %v. Anything else falls back to its
// JSON encoding. nil renders as "".
func FormatID(id any) string {
	if id == nil {
		return ""
	}

	switch v := id.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		rv := reflect.ValueOf(id)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return ""
		}
		return v.String()
	}

	rv := reflect.ValueOf(id)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return FormatID(rv.Elem().Interface())
	}

	if isBasicKind(rv.Kind()) {
		return fmt.Sprintf("%v", id)
	}

	return jsonFallback(id)
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback keeps composite ids deterministic; encoding/json sorts map keys.
func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}
