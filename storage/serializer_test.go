package storage

import (
	"testing"
	"time"

	"github.com/tiercache/tiercache/types"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	spec := types.SlidingExpiration(90 * time.Second)

	data, err := encodeEnvelope([]byte(`"hello"`), spec, []string{"products", "featured"}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	value, gotSpec, tags, negative, err := decodeEnvelope(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(value) != `"hello"` {
		t.Fatalf("Value mismatch: %s", value)
	}
	if gotSpec != spec {
		t.Fatalf("Spec mismatch: got %+v, want %+v", gotSpec, spec)
	}
	if len(tags) != 2 || tags[0] != "products" || tags[1] != "featured" {
		t.Fatalf("Tags mismatch: %v", tags)
	}
	if negative {
		t.Fatal("Entry should not be negative")
	}
}

func TestEnvelopeNegative(t *testing.T) {
	data, err := encodeEnvelope(nil, types.AbsoluteExpiration(time.Second), nil, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, _, tags, negative, err := decodeEnvelope(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !negative {
		t.Fatal("Negative marker should survive the round trip")
	}
	if tags != nil {
		t.Fatalf("Untagged entry should decode with nil tags, got %v", tags)
	}
}

func TestEnvelopeDecodeGarbage(t *testing.T) {
	if _, _, _, _, err := decodeEnvelope([]byte("not json")); err == nil {
		t.Fatal("Expected decode error for malformed envelope")
	}
}
