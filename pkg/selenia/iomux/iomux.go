// Package iomux implements the platform-abstracted readiness multiplexer of
// spec.md §4.C: register/modify/deregister/wait over epoll (Linux) and
// kqueue (Darwin/BSD), with a completion-style stub for platforms with
// neither (where every registration degrades to "always both readable and
// writable," mirroring IOCP's completion-based reporting per spec.md).
//
// Grounded on original_source/selenia_core/src/os/{epoll,kqueue,poller,
// event_loop}.rs for the interest/token/poll contract shape, realized with
// the teacher's per-platform build-tag convention seen in
// pkg/selenia/socket/tuning_{linux,darwin,other}.go.
package iomux

import "errors"

// Interest describes which readiness transitions a registration cares
// about.
type Interest int

const (
	Readable Interest = 1 << iota
	Writable
)

// ReadWrite is shorthand for Readable|Writable.
const ReadWrite = Readable | Writable

// Token identifies a registration. Tokens are monotonically assigned
// starting at 1; 0 is reserved as a sentinel ("no token").
type Token uint64

// Event reports one readiness transition for a registered Token.
type Event struct {
	Token    Token
	Readable bool
	Writable bool
}

// ErrUnknownToken is returned by Modify/Deregister for a Token that was
// never registered (or was already deregistered).
var ErrUnknownToken = errors.New("iomux: unknown token")

// Multiplexer is the platform-abstracted readiness interface every backend
// implements.
type Multiplexer interface {
	// Register subscribes fd for the given interest and returns its Token.
	Register(fd int, interest Interest) (Token, error)
	// Modify changes the interest set for an existing registration. On
	// completion-based backends it only checks that token is registered.
	Modify(token Token, interest Interest) error
	// Deregister removes a registration. Safe to call once per Token.
	Deregister(token Token) error
	// Wait blocks until at least one event is ready, timeoutMs elapses, or
	// an error occurs, then fills events (up to len(events)) and returns the
	// count. A negative timeoutMs blocks indefinitely.
	Wait(events []Event, timeoutMs int) (int, error)
	// Close releases the backend's kernel resources (epoll/kqueue fd).
	Close() error
}

// New constructs the Multiplexer appropriate for the running platform.
func New() (Multiplexer, error) {
	return newPlatform()
}
