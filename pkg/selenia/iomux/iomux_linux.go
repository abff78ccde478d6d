//go:build linux

package iomux

import (
	"sync"

	"golang.org/x/sys/unix"
)

// epollMux is the Linux epoll backend.
type epollMux struct {
	epfd int

	mu      sync.Mutex
	nextTok Token
	fds     map[Token]int
}

func newPlatform() (Multiplexer, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollMux{epfd: fd, nextTok: 1, fds: make(map[Token]int)}, nil
}

func interestToEpollEvents(i Interest) uint32 {
	var ev uint32
	if i&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if i&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (m *epollMux) Register(fd int, interest Interest) (Token, error) {
	m.mu.Lock()
	tok := m.nextTok
	m.nextTok++
	m.fds[tok] = fd
	m.mu.Unlock()

	ev := &unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: int32(tok)}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		m.mu.Lock()
		delete(m.fds, tok)
		m.mu.Unlock()
		return 0, err
	}
	return tok, nil
}

func (m *epollMux) Modify(token Token, interest Interest) error {
	m.mu.Lock()
	fd, ok := m.fds[token]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	ev := &unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: int32(token)}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (m *epollMux) Deregister(token Token) error {
	m.mu.Lock()
	fd, ok := m.fds[token]
	if ok {
		delete(m.fds, token)
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownToken
	}
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (m *epollMux) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(m.epfd, raw, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = Event{
			Token:    Token(raw[i].Fd),
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: raw[i].Events&(unix.EPOLLOUT|unix.EPOLLERR) != 0,
		}
	}
	return n, nil
}

func (m *epollMux) Close() error {
	return unix.Close(m.epfd)
}
