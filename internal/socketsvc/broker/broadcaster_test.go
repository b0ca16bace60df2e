package broker

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/socketsvc/registry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu   sync.Mutex
	sent []comm.Event
}

func (f *fakeHandle) Send(payload []byte) error {
	var ev comm.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeHandle) Close() error { return nil }

func (f *fakeHandle) types() []comm.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []comm.EventType{}
	for _, ev := range f.sent {
		out = append(out, ev.Type)
	}
	return out
}

type setup struct {
	b       *Broadcaster
	subs    *registry.Subscribers
	sockets *registry.Sockets
}

func newSetup() setup {
	subs := registry.NewSubscribers()
	sockets := registry.NewSockets()
	return setup{
		b:       NewBroadcaster(NewObserverTransport(subs), NewSocketTransport(sockets)),
		subs:    subs,
		sockets: sockets,
	}
}

func TestBroadcasterRouting(t *testing.T) {
	s := newSetup()
	obs1, obs2 := &fakeHandle{}, &fakeHandle{}
	s.subs.Store("o1", obs1)
	s.subs.Store("o2", obs2)
	table1, table2 := &fakeHandle{}, &fakeHandle{}
	s.sockets.Register(1, table1)
	s.sockets.Register(2, table2)

	s.b.Emit(comm.TableStatusChanged(1, true))
	s.b.Emit(comm.ForceStartGame(2))
	s.b.Emit(comm.FeeRateChanged(decimal.NewFromInt(1)))

	all := []comm.EventType{comm.EventTableStatusChanged, comm.EventForceStartGame, comm.EventFeeRateChanged}
	assert.Equal(t, all, obs1.types())
	assert.Equal(t, all, obs2.types())

	assert.Equal(t, []comm.EventType{comm.EventFeeRateChanged}, table1.types())
	assert.Equal(t, []comm.EventType{comm.EventForceStartGame, comm.EventFeeRateChanged}, table2.types())
}

func TestBroadcasterSwallowsNotConnected(t *testing.T) {
	s := newSetup()
	obs := &fakeHandle{}
	s.subs.Store("o", obs)

	assert.NotPanics(t, func() { s.b.Emit(comm.ForceStartGame(5)) })
	require.Len(t, obs.sent, 1)
	assert.Equal(t, 5, obs.sent[0].TableID)
}

func TestBroadcasterPreservesOrderPerTransport(t *testing.T) {
	s := newSetup()
	obs := &fakeHandle{}
	s.subs.Store("o", obs)

	for i := 1; i <= 20; i++ {
		s.b.Emit(comm.TableStatusChanged(i, i%2 == 0))
	}

	require.Len(t, obs.sent, 20)
	for i, ev := range obs.sent {
		assert.Equal(t, i+1, ev.TableID)
	}
}

type recordingTransport struct {
	events []comm.Event
}

func (r *recordingTransport) Deliver(ev comm.Event, _ []byte) {
	r.events = append(r.events, ev)
}

func TestBroadcasterAdd(t *testing.T) {
	b := NewBroadcaster()
	rt := &recordingTransport{}
	b.Add(rt)

	b.Emit(comm.GameEnded(4, nil))
	require.Len(t, rt.events, 1)
	assert.Equal(t, comm.EventGameEnded, rt.events[0].Type)
}
