package broker

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/socketsvc/registry"
	log "github.com/sirupsen/logrus"
)

// Transport delivers an already encoded event over one kind of connection.
type Transport interface {
	Deliver(ev comm.Event, payload []byte)
}

// Broadcaster fans one event out to every transport. Emissions are serialized so
// each transport sees events in the order they were emitted.
type Broadcaster struct {
	mu         sync.Mutex
	transports []Transport
}

func NewBroadcaster(transports ...Transport) *Broadcaster {
	return &Broadcaster{transports: transports}
}

// Add attaches a transport after construction, e.g. NATS once connected.
func (b *Broadcaster) Add(t Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transports = append(b.transports, t)
}

func (b *Broadcaster) Emit(ev comm.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("Failed to marshal %s event: %v", ev.Type, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.transports {
		t.Deliver(ev, payload)
	}
	log.Debugf("Emitted %s for table %d", ev.Type, ev.TableID)
}

// ObserverTransport delivers every event to all hub observers.
type ObserverTransport struct {
	subs *registry.Subscribers
}

func NewObserverTransport(subs *registry.Subscribers) *ObserverTransport {
	return &ObserverTransport{subs: subs}
}

func (t *ObserverTransport) Deliver(_ comm.Event, payload []byte) {
	t.subs.Broadcast(payload)
}

// SocketTransport delivers table-directed events to the addressed raw socket and
// broadcast-wide events to all of them. Other events are not sent to tables.
type SocketTransport struct {
	sockets *registry.Sockets
}

func NewSocketTransport(sockets *registry.Sockets) *SocketTransport {
	return &SocketTransport{sockets: sockets}
}

func (t *SocketTransport) Deliver(ev comm.Event, payload []byte) {
	switch ev.Route() {
	case comm.RouteTable:
		if err := t.sockets.SendTo(ev.TableID, payload); err != nil {
			if errors.Is(err, registry.ErrNotConnected) {
				log.Infof("%s for table %d dropped: no socket connected", ev.Type, ev.TableID)
				return
			}
			log.Warnf("%s for table %d: %v", ev.Type, ev.TableID, err)
		}
	case comm.RouteAll:
		t.sockets.Broadcast(payload)
	}
}
