package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
	fail   bool
}

func (f *fakeHandle) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return errors.New("use of closed connection")
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, p := range f.sent {
		out = append(out, string(p))
	}
	return out
}

func TestTablesSetActive(t *testing.T) {
	tables := NewTables()

	tests := []struct {
		name   string
		id     int
		active bool
	}{
		{"activate", 1, true},
		{"deactivate", 2, false},
		{"large id", 4096, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables.SetActive(tt.id, tt.active)
			assert.Equal(t, tt.active, tables.IsActive(tt.id))
		})
	}

	assert.False(t, tables.IsActive(99), "unreferenced table defaults to inactive")
	assert.Equal(t, []int{1, 4096}, tables.ActiveTableIDs())
}

func TestTablesConcurrentAccess(t *testing.T) {
	tables := NewTables()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			tables.SetActive(id, true)
		}(i)
		go func() {
			defer wg.Done()
			_ = tables.ActiveTableIDs()
		}()
	}
	wg.Wait()

	assert.Len(t, tables.ActiveTableIDs(), 50)
}

func TestSocketsRegisterClosesSuperseded(t *testing.T) {
	s := NewSockets()
	first := &fakeHandle{}
	second := &fakeHandle{}

	assert.Nil(t, s.Register(3, first))
	assert.Equal(t, first, s.Register(3, second))
	assert.True(t, first.closed)
	assert.False(t, second.closed)

	// the superseded connection's cleanup must not evict its replacement
	assert.False(t, s.Unregister(3, first))
	h, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, second, h)

	assert.True(t, s.Unregister(3, second))
	assert.Equal(t, 0, s.Count())
}

func TestSocketsSendTo(t *testing.T) {
	s := NewSockets()

	assert.ErrorIs(t, s.SendTo(5, []byte("x")), ErrNotConnected)

	h := &fakeHandle{}
	s.Register(5, h)
	require.NoError(t, s.SendTo(5, []byte("hello")))
	assert.Equal(t, []string{"hello"}, h.messages())

	h.fail = true
	assert.NoError(t, s.SendTo(5, []byte("lost")), "send failure on a dying socket is swallowed")
}

func TestSocketsBroadcastBestEffort(t *testing.T) {
	s := NewSockets()
	handles := make([]*fakeHandle, 0, 4)
	for i := 1; i <= 4; i++ {
		h := &fakeHandle{fail: i == 2}
		handles = append(handles, h)
		s.Register(i, h)
	}

	s.Broadcast([]byte("rate"))

	for i, h := range handles {
		if i == 1 {
			assert.Empty(t, h.messages())
			continue
		}
		assert.Equal(t, []string{"rate"}, h.messages(), fmt.Sprintf("table %d", i+1))
	}
}

func TestSubscribersBroadcast(t *testing.T) {
	subs := NewSubscribers()
	a, b, dead := &fakeHandle{}, &fakeHandle{}, &fakeHandle{fail: true}
	subs.Store("a", a)
	subs.Store("b", b)
	subs.Store("dead", dead)
	assert.Equal(t, 3, subs.Count())

	subs.Broadcast([]byte("evt"))
	assert.Equal(t, []string{"evt"}, a.messages())
	assert.Equal(t, []string{"evt"}, b.messages())

	subs.Delete("dead")
	_, ok := subs.Get("dead")
	assert.False(t, ok)
	assert.Equal(t, 2, subs.Count())
}
