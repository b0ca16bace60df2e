package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avvvet/danggoo-services/internal/tablesvc/models"
	"github.com/avvvet/danggoo-services/internal/tablesvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	svc       *service.GameService
	tokenAuth *jwtauth.JWTAuth
}

// NewHandler builds the game HTTP handlers. A nil tokenAuth leaves settings writes open.
func NewHandler(svc *service.GameService, tokenAuth *jwtauth.JWTAuth) *Handler {
	return &Handler{svc: svc, tokenAuth: tokenAuth}
}

// Response is the body of every game endpoint. Domain failures are reported with
// Success=false and HTTP 200; only malformed requests get a 4xx status.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func CreateResponse(w http.ResponseWriter, code int, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func ok(w http.ResponseWriter, message string, data interface{}) {
	CreateResponse(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func fail(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrPersistence) {
		log.Errorf("Request failed: %v", err)
	}
	CreateResponse(w, http.StatusOK, Response{Success: false, Message: err.Error()})
}

func badRequest(w http.ResponseWriter, message string) {
	CreateResponse(w, http.StatusBadRequest, Response{Success: false, Message: message})
}

func intParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) tableID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, valid := intParam(r, "tableId")
	if !valid {
		badRequest(w, "Invalid table id")
		return 0, false
	}
	return int(id), true
}

func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	game, err := h.svc.StartGame(r.Context(), tableID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Game started", game)
}

func (h *Handler) EndGame(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	game, err := h.svc.EndGame(r.Context(), tableID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Game ended", game)
}

func (h *Handler) ForceStart(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	if err := h.svc.ForceStart(r.Context(), tableID); err != nil {
		fail(w, err)
		return
	}
	ok(w, "ForceStartGame sent", nil)
}

func (h *Handler) ForceEnd(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	if err := h.svc.ForceEnd(r.Context(), tableID); err != nil {
		fail(w, err)
		return
	}
	ok(w, "ForceEndGame sent", nil)
}

func (h *Handler) SendTestMessage(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	if err := h.svc.SendTestMessage(r.Context(), tableID); err != nil {
		fail(w, err)
		return
	}
	ok(w, "Test message sent", nil)
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	games, err := h.svc.ListGames(r.Context(), tableID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Games for table "+strconv.Itoa(tableID), games)
}

func (h *Handler) ArchiveTable(w http.ResponseWriter, r *http.Request) {
	tableID, valid := h.tableID(w, r)
	if !valid {
		return
	}
	recs, err := h.svc.ArchiveAllForTable(r.Context(), tableID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "All games moved to records", recs)
}

func (h *Handler) FinishGame(w http.ResponseWriter, r *http.Request) {
	gameID, valid := intParam(r, "gameId")
	if !valid {
		badRequest(w, "Invalid game id")
		return
	}
	game, err := h.svc.FinishGame(r.Context(), gameID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Game saved", game)
}

func (h *Handler) ArchiveGame(w http.ResponseWriter, r *http.Request) {
	gameID, valid := intParam(r, "gameId")
	if !valid {
		badRequest(w, "Invalid game id")
		return
	}
	rec, err := h.svc.ArchiveGame(r.Context(), gameID)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Game moved to records", rec)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, valid := intParam(r, "gameId")
	if !valid {
		badRequest(w, "Invalid game id")
		return
	}
	if err := h.svc.DeleteGame(r.Context(), gameID); err != nil {
		fail(w, err)
		return
	}
	ok(w, "Game deleted", nil)
}

// ListRecords accepts optional tableNum, year, month and date (YYYY-MM-DD) query filters.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.RecordFilter{}

	for name, dst := range map[string]*int{"tableNum": &f.TableNum, "year": &f.Year, "month": &f.Month} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "Invalid "+name)
			return
		}
		*dst = n
	}
	if f.Month > 12 {
		badRequest(w, "Invalid month")
		return
	}
	if v := q.Get("date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			badRequest(w, "Invalid date, expected YYYY-MM-DD")
			return
		}
		f.Date = &d
	}

	recs, err := h.svc.ListRecords(r.Context(), f)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Records", recs)
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	recordID, valid := intParam(r, "recordId")
	if !valid {
		badRequest(w, "Invalid record id")
		return
	}
	if err := h.svc.DeleteRecord(r.Context(), recordID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(w, errors.New("record not found"))
			return
		}
		fail(w, err)
		return
	}
	ok(w, "Record deleted", nil)
}

type feeBody struct {
	FeePerMinute decimal.Decimal `json:"feePerMinute"`
}

func (h *Handler) GetFee(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.FeePerMinute(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Fee per minute", feeBody{FeePerMinute: rate})
}

func (h *Handler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	body := feeBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	st, err := h.svc.UpdateFeePerMinute(r.Context(), body.FeePerMinute)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, "Fee per minute updated", st)
}
