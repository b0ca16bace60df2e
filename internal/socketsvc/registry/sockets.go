package registry

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("table is not connected")

// Handle is a live connection that can be written to.
type Handle interface {
	Send(payload []byte) error
	Close() error
}

// Sockets maps a table id to the raw socket currently serving it.
// The last connection accepted for a table wins.
type Sockets struct {
	mu    sync.RWMutex
	conns map[int]Handle
}

func NewSockets() *Sockets {
	return &Sockets{conns: make(map[int]Handle)}
}

// Register binds h to the table and closes the handle it supersedes, if any.
func (s *Sockets) Register(tableID int, h Handle) Handle {
	s.mu.Lock()
	prev := s.conns[tableID]
	s.conns[tableID] = h
	s.mu.Unlock()

	if prev != nil && prev != h {
		log.Infof("Table %d reconnected, closing superseded socket", tableID)
		if err := prev.Close(); err != nil {
			log.Warnf("Closing superseded socket for table %d: %v", tableID, err)
		}
	}
	return prev
}

// Unregister removes h only while it is still the registered handle for the table.
// It reports whether the entry was removed.
func (s *Sockets) Unregister(tableID int, h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.conns[tableID]; !ok || cur != h {
		return false
	}
	delete(s.conns, tableID)
	return true
}

func (s *Sockets) Get(tableID int) (Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.conns[tableID]
	return h, ok
}

// SendTo writes payload to the table's socket. Write failures on a socket that is
// closing are logged and swallowed.
func (s *Sockets) SendTo(tableID int, payload []byte) error {
	h, ok := s.Get(tableID)
	if !ok {
		return ErrNotConnected
	}
	if err := h.Send(payload); err != nil {
		log.Warnf("Send to table %d failed: %v", tableID, err)
	}
	return nil
}

// Broadcast writes payload to every registered socket.
func (s *Sockets) Broadcast(payload []byte) {
	s.mu.RLock()
	targets := make(map[int]Handle, len(s.conns))
	for id, h := range s.conns {
		targets[id] = h
	}
	s.mu.RUnlock()

	for id, h := range targets {
		if err := h.Send(payload); err != nil {
			log.Warnf("Broadcast to table %d failed: %v", id, err)
		}
	}
}

func (s *Sockets) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
