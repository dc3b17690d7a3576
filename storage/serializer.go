// Package storage implements the shared cache tier on Redis, including the
// wire envelope that carries expiration metadata alongside the value bytes.
package storage

import (
	"encoding/json"
	"time"

	"github.com/tiercache/tiercache/types"
)

// Serializer converts values to and from the shared tier's wire format.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// envelope is what actually lives under a Redis key: the serialized value
// plus enough of the expiration spec to renew sliding entries on read, the
// entry's tags, and the negative-entry marker. The value bytes are opaque to
// the envelope, so a non-JSON Marshaller cannot corrupt it. The envelope
// replaces the entry wholesale on every write. Tags travel in the envelope
// so a reader that did not write the entry can still learn them.
type envelope struct {
	Value    []byte   `json:"v,omitempty"`
	Kind     uint8    `json:"k,omitempty"`
	Duration int64    `json:"d,omitempty"`
	Tags     []string `json:"t,omitempty"`
	Negative bool     `json:"n,omitempty"`
}

// encodeEnvelope wraps serialized value bytes with the entry's spec and tags.
func encodeEnvelope(value []byte, spec types.ExpirationSpec, tags []string, negative bool) ([]byte, error) {
	return json.Marshal(envelope{
		Value:    value,
		Kind:     uint8(spec.Kind),
		Duration: int64(spec.Duration),
		Tags:     tags,
		Negative: negative,
	})
}

// decodeEnvelope unwraps a stored envelope.
func decodeEnvelope(data []byte) (value []byte, spec types.ExpirationSpec, tags []string, negative bool, err error) {
	var env envelope
	if err = json.Unmarshal(data, &env); err != nil {
		return nil, types.ExpirationSpec{}, nil, false, err
	}
	spec = types.ExpirationSpec{
		Kind:     types.ExpirationKind(env.Kind),
		Duration: time.Duration(env.Duration),
	}
	return env.Value, spec, env.Tags, env.Negative, nil
}
