package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

type stringerID struct{ v string }

func (s stringerID) String() string { return "sid-" + s.v }

func TestComposeKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"partition", ComposePartitionKey("user:app"), "Partition:user:app"},
		{"timeout", ComposeTimeoutPartitionKey("user:app"), "Partition:user:app:TimeoutItems"},
		{"cold start", ComposeColdStartKey("User"), "LastToGetAllFor:User"},
		{"partition name", PartitionNameFromKey("Partition:user:app"), "user:app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestComposeKeyForCustomIndex(t *testing.T) {
	key := ComposeKeyForCustomIndex("email", "a@example.com")
	if !strings.HasPrefix(key, "CustomIndexFor:") {
		t.Fatalf("unexpected prefix in %q", key)
	}
	if len(key) != len("CustomIndexFor:")+64 {
		t.Errorf("expected a hex sha256 suffix, got %q", key)
	}
	if key != ComposeKeyForCustomIndex("email", "a@example.com") {
		t.Error("composition should be deterministic")
	}

	distinct := []string{
		ComposeKeyForCustomIndex("email", "b@example.com"),
		ComposeKeyForCustomIndex("mail", "a@example.com"),
		ComposeKeyForCustomIndex("ab", "c"),
		ComposeKeyForCustomIndex("a", "bc"),
	}
	seen := map[string]bool{key: true}
	for _, k := range distinct {
		if seen[k] {
			t.Errorf("collision for %q", k)
		}
		seen[k] = true
	}

	if got := ComposeKeyForCustomIndex("", "x"); got != "" {
		t.Errorf("empty name should yield empty key, got %q", got)
	}
	if got := ComposeKeyForCustomIndex("x", ""); got != "" {
		t.Errorf("empty value should yield empty key, got %q", got)
	}
}

func TestFormatID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	n := 42
	var nilPtr *int

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "user-1", "user-1"},
		{"int", 7, "7"},
		{"uint64", uint64(9), "9"},
		{"bool", true, "true"},
		{"float", 1.5, "1.5"},
		{"pointer", &n, "42"},
		{"nil pointer", nilPtr, ""},
		{"stringer", stringerID{"x"}, "sid-x"},
		{"uuid", id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{"bytes", []byte("raw"), "raw"},
		{"composite", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatID(tt.in); got != tt.want {
				t.Errorf("FormatID(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
