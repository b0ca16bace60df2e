package registry

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Subscribers tracks the observer connections of the hub, keyed by socket id.
type Subscribers struct {
	conns sync.Map
}

func NewSubscribers() *Subscribers {
	return &Subscribers{}
}

func (s *Subscribers) Store(socketID string, h Handle) {
	s.conns.Store(socketID, h)
}

func (s *Subscribers) Delete(socketID string) {
	s.conns.Delete(socketID)
}

func (s *Subscribers) Get(socketID string) (Handle, bool) {
	h, ok := s.conns.Load(socketID)
	if !ok {
		return nil, false
	}
	return h.(Handle), true
}

// Broadcast writes payload to every observer. One failing observer does not stop the rest.
func (s *Subscribers) Broadcast(payload []byte) {
	s.conns.Range(func(key, value any) bool {
		if err := value.(Handle).Send(payload); err != nil {
			log.Warnf("Send to observer %s failed: %v", key.(string), err)
		}
		return true
	})
}

func (s *Subscribers) Count() int {
	count := 0
	s.conns.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
