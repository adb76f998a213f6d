package cache

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts values to and from the bytes kept in the store.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackSerializer is the default Serializer.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgpackSerializer) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// JSONSerializer stores values as JSON, which keeps them readable from redis-cli.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var (
	_ Serializer = MsgpackSerializer{}
	_ Serializer = JSONSerializer{}
)
