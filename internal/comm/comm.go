package comm

import (
	"encoding/json"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/shopspring/decimal"
)

// EventType names an outbound event. The value is the "type" field on the wire.
type EventType string

const (
	EventTableStatusChanged EventType = "TableStatusChanged"
	EventGameStarted        EventType = "GameStarted"
	EventGameEnded          EventType = "GameEnded"
	EventForceStartGame     EventType = "ForceStartGame"
	EventForceEndGame       EventType = "ForceEndGame"
	EventRawMessage         EventType = "RawMessage"
	EventTestMessage        EventType = "TestMessage"
	EventFeeRateChanged     EventType = "FeeRateChanged"
)

// Route decides which raw table sockets receive an event. Observers always do.
type Route int

const (
	RouteObservers Route = iota // observers only
	RouteTable                  // observers and the addressed table socket
	RouteAll                    // observers and every table socket
)

// Event is the single outbound message shape shared by every transport.
type Event struct {
	Type         EventType        `json:"type"`
	TableID      int              `json:"tableId,omitempty"`
	IsActive     *bool            `json:"isActive,omitempty"`
	Game         *models.Game     `json:"game,omitempty"`
	User         string           `json:"user,omitempty"`
	Message      string           `json:"message,omitempty"`
	FeePerMinute *decimal.Decimal `json:"feePerMinute,omitempty"`
	Payload      json.RawMessage  `json:"payload,omitempty"`
}

func (e Event) Route() Route {
	switch e.Type {
	case EventForceStartGame, EventForceEndGame, EventTestMessage:
		return RouteTable
	case EventFeeRateChanged:
		return RouteAll
	default:
		return RouteObservers
	}
}

func TableStatusChanged(tableID int, isActive bool) Event {
	return Event{Type: EventTableStatusChanged, TableID: tableID, IsActive: &isActive}
}

func GameStarted(tableID int, g *models.Game) Event {
	return Event{Type: EventGameStarted, TableID: tableID, Game: g}
}

func GameEnded(tableID int, g *models.Game) Event {
	return Event{Type: EventGameEnded, TableID: tableID, Game: g}
}

func ForceStartGame(tableID int) Event {
	return Event{Type: EventForceStartGame, TableID: tableID}
}

func ForceEndGame(tableID int) Event {
	return Event{Type: EventForceEndGame, TableID: tableID}
}

// RawMessage echoes an inbound payload to observers. User is set for hub chat messages.
func RawMessage(tableID int, user string, payload []byte) Event {
	ev := Event{Type: EventRawMessage, TableID: tableID, User: user}
	if json.Valid(payload) {
		ev.Payload = json.RawMessage(payload)
	} else {
		ev.Message = string(payload)
	}
	return ev
}

func TestMessage(tableID int, message string) Event {
	return Event{Type: EventTestMessage, TableID: tableID, Message: message}
}

func FeeRateChanged(rate decimal.Decimal) Event {
	return Event{Type: EventFeeRateChanged, FeePerMinute: &rate}
}

// Inbound message types accepted on a table socket.
const (
	TypeUpdateTableStatus = "updateTableStatus"
	TypeGameStarted       = "GameStarted"
	TypeGameEnded         = "GameEnded"
	TypeForceStartGame    = "ForceStartGame"
	TypeForceEndGame      = "ForceEndGame"
)

// Inbound message types accepted from hub observers.
const (
	TypeGetAllTableStatus = "getAllTableStatus"
	TypeSendMessage       = "sendMessage"
)

// TableMessage is a message received on a table socket. The table is bound by the connection.
type TableMessage struct {
	Type     string `json:"type"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// HubMessage is a message received from an observer on the hub.
type HubMessage struct {
	Type     string `json:"type"`
	TableID  int    `json:"tableId,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
	User     string `json:"user,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ConnectionStatus is sent once to a table socket right after it is accepted.
type ConnectionStatus struct {
	Type        string `json:"type"` // always "connectionStatus"
	IsConnected bool   `json:"isConnected"`
}

// TableStatusSnapshot answers an observer's status query.
type TableStatusSnapshot struct {
	Type            string `json:"type"` // always "TableStatusSnapshot"
	ConnectedTables []int  `json:"connectedTables"`
}

// ErrorMessage reports a failed action back to the socket that asked for it.
type ErrorMessage struct {
	Type   string `json:"type"` // always "error"
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

// TableCommand is the envelope accepted on the NATS command subject.
type TableCommand struct {
	Type    string `json:"type"`
	TableID int    `json:"tableId"`
}
