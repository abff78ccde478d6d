//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package iomux

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueMux is the kqueue backend shared by the BSD family.
type kqueueMux struct {
	kq int

	mu       sync.Mutex
	nextTok  Token
	fds      map[Token]int
	interest map[Token]Interest
}

func newPlatform() (Multiplexer, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueMux{
		kq:       kq,
		nextTok:  1,
		fds:      make(map[Token]int),
		interest: make(map[Token]Interest),
	}, nil
}

func (m *kqueueMux) changesFor(fd int, token Token, interest Interest, add bool) []unix.Kevent_t {
	var flags uint16 = unix.EV_ADD | unix.EV_ENABLE
	if !add {
		flags = unix.EV_DELETE
	}
	var out []unix.Kevent_t
	if add && interest&Readable != 0 || !add {
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if add && interest&Writable != 0 || !add {
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	_ = token
	return out
}

func (m *kqueueMux) Register(fd int, interest Interest) (Token, error) {
	m.mu.Lock()
	tok := m.nextTok
	m.nextTok++
	m.fds[tok] = fd
	m.interest[tok] = interest
	m.mu.Unlock()

	changes := m.changesFor(fd, tok, interest, true)
	if len(changes) > 0 {
		if _, err := unix.Kevent(m.kq, changes, nil, nil); err != nil {
			m.mu.Lock()
			delete(m.fds, tok)
			delete(m.interest, tok)
			m.mu.Unlock()
			return 0, err
		}
	}
	return tok, nil
}

func (m *kqueueMux) Modify(token Token, interest Interest) error {
	m.mu.Lock()
	fd, ok := m.fds[token]
	old := m.interest[token]
	if ok {
		m.interest[token] = interest
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	// Remove filters no longer wanted, add ones newly wanted.
	var changes []unix.Kevent_t
	if old&Readable != 0 && interest&Readable == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	}
	if old&Readable == 0 && interest&Readable != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if old&Writable != 0 && interest&Writable == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	}
	if old&Writable == 0 && interest&Writable != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_ENABLE})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(m.kq, changes, nil, nil)
	return err
}

func (m *kqueueMux) Deregister(token Token) error {
	m.mu.Lock()
	fd, ok := m.fds[token]
	if ok {
		delete(m.fds, token)
		delete(m.interest, token)
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	// Errors here are expected when only one of the two filters was active;
	// kqueue returns ENOENT for the filter that was never added.
	_, _ = unix.Kevent(m.kq, changes, nil, nil)
	return nil
}

func (m *kqueueMux) fdToToken(fd int) (Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, f := range m.fds {
		if f == fd {
			return tok, true
		}
	}
	return 0, false
}

func (m *kqueueMux) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.Kevent_t, len(events))
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1_000_000))
		ts = &t
	}
	n, err := unix.Kevent(m.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	// Coalesce read+write kevents for the same fd into one Event.
	byToken := make(map[Token]*Event)
	order := make([]Token, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		tok, ok := m.fdToToken(fd)
		if !ok {
			continue
		}
		e, exists := byToken[tok]
		if !exists {
			e = &Event{Token: tok}
			byToken[tok] = e
			order = append(order, tok)
		}
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			e.Readable = true
		case unix.EVFILT_WRITE:
			e.Writable = true
		}
	}
	count := 0
	for _, tok := range order {
		if count >= len(events) {
			break
		}
		events[count] = *byToken[tok]
		count++
	}
	return count, nil
}

func (m *kqueueMux) Close() error {
	return unix.Close(m.kq)
}
