package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/avvvet/danggoo-services/internal/socketsvc/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// TableLayout tells which table ids may connect.
type TableLayout interface {
	Has(id int) bool
	Count() int
}

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	tables   TableLayout
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func NewHandler(s *ws.Ws, tables TableLayout) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:     s,
		tables: tables,
	}
	return h
}

// HandleTableSocket accepts the raw socket of one table, bound by ?tableId=N.
func (h *Handler) HandleTableSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected a WebSocket upgrade request", http.StatusBadRequest)
		return
	}

	tableID, err := strconv.Atoi(r.URL.Query().Get("tableId"))
	if err != nil || !h.tables.Has(tableID) {
		log.Warnf("Rejected table socket with tableId %q", r.URL.Query().Get("tableId"))
		http.Error(w, "Invalid tableId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	log.Infof("Table %d connected from %s", tableID, r.RemoteAddr)

	go h.handleTableConnection(newConn(conn), tableID)
}

func (h *Handler) handleTableConnection(c *Conn, tableID int) {
	h.ws.TableConnected(tableID, c)

	// Ensure cleanup happens when connection closes
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Table %d connection handler panicked: %v", tableID, rec)
		}
		log.Infof("Closing WebSocket connection for table %d", tableID)
		c.Close()
		h.ws.TableDisconnected(tableID, c)
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			logClose(err, "table", strconv.Itoa(tableID))
			break
		}

		if err := h.ws.TableMessage(tableID, c, raw); err != nil {
			if errors.Is(err, ws.ErrMalformedMessage) {
				log.Errorf("Table %d: %v", tableID, err)
				continue // Don't break, just skip this message
			}
			log.Errorf("Table %d message failed: %v", tableID, err)
		}
	}
}

// HandleHub accepts an observer connection.
func (h *Handler) HandleHub(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	log.Infof("New observer connection established: %s", socketId)

	go h.handleHubConnection(newConn(conn), socketId)
}

func (h *Handler) handleHubConnection(c *Conn, socketId string) {
	h.ws.SubscriberConnected(socketId, c)

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Observer %s connection handler panicked: %v", socketId, rec)
		}
		log.Infof("Closing observer connection: %s", socketId)
		c.Close()
		h.ws.SubscriberDisconnected(socketId)
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			logClose(err, "observer", socketId)
			break
		}

		if err := h.ws.HubMessage(socketId, c, raw); err != nil {
			log.Errorf("Observer %s: %v", socketId, err)
			h.sendErrorToClient(c, "Invalid message format")
			continue
		}
	}
}

func logClose(err error, kind, id string) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		log.Errorf("WebSocket unexpected close error for %s %s: %v", kind, id, err)
	} else {
		log.Infof("WebSocket connection closed for %s %s", kind, id)
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(c *Conn, errorMsg string) {
	errorResponse := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	if data, err := json.Marshal(errorResponse); err == nil {
		if err := c.Send(data); err != nil {
			log.Errorf("Failed to send error message to client: %v", err)
		}
	}
}

// TableStatus reports which tables currently have an active client.
func (h *Handler) TableStatus(w http.ResponseWriter, r *http.Request) {
	CreateResponse(w, Response{
		Success: true,
		Message: "table status",
		Data: map[string]interface{}{
			"connectedTables": h.ws.ActiveTables(),
			"tableCount":      h.tables.Count(),
		},
	})
}

func CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	CreateResponse(w, Response{
		Success: true,
		Message: "table service is running at port " + os.Getenv("TABLE_SERVICE_PORT"),
	})
}
