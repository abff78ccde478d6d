package metrics

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/crypto"
)

// TraceContext is a parsed or freshly generated W3C traceparent header
// value, per spec.md §4.O. Grounded on
// original_source/selenia_core/src/traceparent.rs.
type TraceContext struct {
	TraceID [16]byte
	SpanID  [8]byte
	Sampled bool
}

// ParseTraceparent parses "00-<32hex trace>-<16hex span>-<2hex flags>". It
// returns ok=false for anything that does not match that exact shape,
// including unsupported versions.
func ParseTraceparent(value string) (TraceContext, bool) {
	parts := strings.Split(value, "-")
	if len(parts) != 4 || parts[0] != "00" {
		return TraceContext{}, false
	}
	traceIDBytes, err := hex.DecodeString(parts[1])
	if err != nil || len(traceIDBytes) != 16 {
		return TraceContext{}, false
	}
	spanIDBytes, err := hex.DecodeString(parts[2])
	if err != nil || len(spanIDBytes) != 8 {
		return TraceContext{}, false
	}
	flagsBytes, err := hex.DecodeString(parts[3])
	if err != nil || len(flagsBytes) != 1 {
		return TraceContext{}, false
	}
	var tc TraceContext
	copy(tc.TraceID[:], traceIDBytes)
	copy(tc.SpanID[:], spanIDBytes)
	tc.Sampled = flagsBytes[0]&0x01 != 0
	return tc, true
}

// GenerateTraceparent creates a fresh, sampled TraceContext using the
// engine's CSPRNG (pkg/selenia/crypto), per spec.md's "generate fills 16+8
// random bytes and flags=01."
func GenerateTraceparent() TraceContext {
	var tc TraceContext
	if b, err := crypto.RandomBytes(16); err == nil {
		copy(tc.TraceID[:], b)
	}
	if b, err := crypto.RandomBytes(8); err == nil {
		copy(tc.SpanID[:], b)
	}
	tc.Sampled = true
	return tc
}

// Header renders tc back into the "00-...-...-.." wire form for
// propagation.
func (tc TraceContext) Header() string {
	flags := byte(0)
	if tc.Sampled {
		flags = 1
	}
	return fmt.Sprintf("00-%s-%s-%02x", hex.EncodeToString(tc.TraceID[:]), hex.EncodeToString(tc.SpanID[:]), flags)
}
