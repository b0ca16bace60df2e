package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/danggoo-services/internal/comm"
	"github.com/avvvet/danggoo-services/internal/socketsvc/registry"
	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	log "github.com/sirupsen/logrus"
)

var ErrMalformedMessage = errors.New("malformed message")

const opTimeout = 15 * time.Second

// Lifecycle is the part of the game service reachable from a table socket.
type Lifecycle interface {
	StartGame(ctx context.Context, tableID int) (*models.Game, error)
	EndGame(ctx context.Context, tableID int) (*models.Game, error)
	ForceStart(ctx context.Context, tableID int) error
	ForceEnd(ctx context.Context, tableID int) error
}

type Emitter interface {
	Emit(ev comm.Event)
}

// Ws turns socket traffic into registry updates, lifecycle calls and events.
type Ws struct {
	tables    *registry.Tables
	sockets   *registry.Sockets
	subs      *registry.Subscribers
	emitter   Emitter
	lifecycle Lifecycle
}

func NewWs(tables *registry.Tables, sockets *registry.Sockets, subs *registry.Subscribers, emitter Emitter, lifecycle Lifecycle) *Ws {
	return &Ws{
		tables:    tables,
		sockets:   sockets,
		subs:      subs,
		emitter:   emitter,
		lifecycle: lifecycle,
	}
}

func (s *Ws) ActiveTables() []int {
	return s.tables.ActiveTableIDs()
}

// TableConnected registers a raw table socket and confirms the connection to it.
func (s *Ws) TableConnected(tableID int, h registry.Handle) {
	s.sockets.Register(tableID, h)
	s.tables.SetActive(tableID, true)
	s.emitter.Emit(comm.TableStatusChanged(tableID, true))

	send(h, comm.ConnectionStatus{Type: "connectionStatus", IsConnected: true})
}

// TableDisconnected releases the table only if h is still its registered socket.
func (s *Ws) TableDisconnected(tableID int, h registry.Handle) {
	if !s.sockets.Unregister(tableID, h) {
		log.Infof("Superseded socket for table %d closed, table stays active", tableID)
		return
	}
	s.tables.SetActive(tableID, false)
	s.emitter.Emit(comm.TableStatusChanged(tableID, false))
}

// TableMessage handles one message read from the socket bound to tableID.
// Lifecycle failures are reported back on h; only undecodable input returns an error.
func (s *Ws) TableMessage(tableID int, h registry.Handle, raw []byte) error {
	msg := &comm.TableMessage{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}
	if msg.Type == comm.TypeUpdateTableStatus && msg.IsActive == nil {
		return fmt.Errorf("%w: updateTableStatus without isActive", ErrMalformedMessage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case comm.TypeUpdateTableStatus:
		s.setStatus(tableID, *msg.IsActive)
	case comm.TypeGameStarted:
		_, err = s.lifecycle.StartGame(ctx, tableID)
	case comm.TypeGameEnded:
		_, err = s.lifecycle.EndGame(ctx, tableID)
	case comm.TypeForceStartGame:
		err = s.lifecycle.ForceStart(ctx, tableID)
	case comm.TypeForceEndGame:
		err = s.lifecycle.ForceEnd(ctx, tableID)
	default:
		log.Debugf("Ignoring message type %q from table %d", msg.Type, tableID)
	}

	if err != nil {
		log.Errorf("Table %d %s failed: %s", tableID, msg.Type, err)
		send(h, comm.ErrorMessage{Type: "error", Action: msg.Type, Error: err.Error()})
	}

	s.emitter.Emit(comm.RawMessage(tableID, "", raw))
	return nil
}

func (s *Ws) setStatus(tableID int, isActive bool) {
	s.tables.SetActive(tableID, isActive)
	s.emitter.Emit(comm.TableStatusChanged(tableID, isActive))
}

// SubscriberConnected adds an observer and sends it the current table status.
func (s *Ws) SubscriberConnected(socketID string, h registry.Handle) {
	s.subs.Store(socketID, h)
	s.sendSnapshot(h)
}

func (s *Ws) SubscriberDisconnected(socketID string) {
	s.subs.Delete(socketID)
}

// HubMessage handles one message from an observer.
func (s *Ws) HubMessage(socketID string, h registry.Handle, raw []byte) error {
	msg := &comm.HubMessage{}
	if err := json.Unmarshal(raw, msg); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case comm.TypeGetAllTableStatus:
		s.sendSnapshot(h)
	case comm.TypeUpdateTableStatus:
		if msg.TableID <= 0 || msg.IsActive == nil {
			return fmt.Errorf("%w: updateTableStatus needs tableId and isActive", ErrMalformedMessage)
		}
		s.setStatus(msg.TableID, *msg.IsActive)
	case comm.TypeSendMessage:
		s.emitter.Emit(comm.RawMessage(msg.TableID, msg.User, []byte(msg.Message)))
	default:
		log.Warnf("unknown hub message received from %s: %s", socketID, msg.Type)
	}
	return nil
}

func (s *Ws) sendSnapshot(h registry.Handle) {
	send(h, comm.TableStatusSnapshot{
		Type:            "TableStatusSnapshot",
		ConnectedTables: s.tables.ActiveTableIDs(),
	})
}

func send(h registry.Handle, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to marshal outbound message: %v", err)
		return
	}
	if err := h.Send(data); err != nil {
		log.Warnf("Failed to send message to client: %v", err)
	}
}
