package hpack

import "testing"

func fieldsEqual(a, b []HeaderField) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name   string
		fields []HeaderField
	}{
		{
			name: "static-only",
			fields: []HeaderField{
				{Name: ":method", Value: "GET"},
				{Name: ":path", Value: "/"},
				{Name: ":scheme", Value: "https"},
			},
		},
		{
			name: "custom-headers",
			fields: []HeaderField{
				{Name: ":status", Value: "200"},
				{Name: "content-type", Value: "text/plain; charset=utf-8"},
				{Name: "x-request-id", Value: "abc-123-def-456"},
			},
		},
		{
			name: "repeated-custom-header-hits-dynamic-table",
			fields: []HeaderField{
				{Name: "x-trace-id", Value: "same-value-both-times"},
				{Name: "x-trace-id", Value: "same-value-both-times"},
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			enc := NewEncoder(4096)
			dec := NewDecoder(4096, 16384)

			encoded := enc.Encode(c.fields)
			decoded, err := dec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !fieldsEqual(decoded, c.fields) {
				t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, c.fields)
			}
		})
	}
}

func TestDecoderTracksEncoderDynamicTableAcrossCalls(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096, 16384)

	first := []HeaderField{{Name: "x-session", Value: "session-value-one"}}
	second := []HeaderField{{Name: "x-session", Value: "session-value-one"}}

	encoded1 := enc.Encode(first)
	decoded1, err := dec.Decode(encoded1)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}
	if !fieldsEqual(decoded1, first) {
		t.Fatalf("first round trip mismatch: got %+v", decoded1)
	}

	encoded2 := enc.Encode(second)
	decoded2, err := dec.Decode(encoded2)
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}
	if !fieldsEqual(decoded2, second) {
		t.Fatalf("second round trip mismatch: got %+v", decoded2)
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	enc := NewEncoder(4096)
	dec := NewDecoder(4096, 16384)

	encoded := enc.Encode([]HeaderField{{Name: "content-length", Value: "123456"}})
	if len(encoded) < 2 {
		t.Fatal("expected encoded output long enough to truncate")
	}

	if _, err := dec.Decode(encoded[:len(encoded)-1]); err == nil {
		t.Fatal("Decode should reject an incomplete header block")
	}
}

func TestStaticTableLookup(t *testing.T) {
	idx, exact := FindStaticIndex(":method", "GET")
	if !exact || idx <= 0 {
		t.Fatalf("FindStaticIndex(:method, GET) = (%d, %v), want an exact match", idx, exact)
	}
	got := GetStaticEntry(idx)
	if got.Name != ":method" || got.Value != "GET" {
		t.Fatalf("GetStaticEntry(%d) = %+v, want :method/GET", idx, got)
	}
}
