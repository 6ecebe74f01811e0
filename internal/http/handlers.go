package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/tickethub/ticket-inventory/internal/domain"
	"github.com/tickethub/ticket-inventory/internal/idempotency"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"github.com/tickethub/ticket-inventory/internal/service"
)

type Handlers struct {
	svc    *service.Service
	idemp  *idempotency.Idempotency
	logger observability.Logger
}

func NewHandlers(svc *service.Service, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{svc: svc, idemp: idemp, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Unknown
// errors are logged and reported opaquely.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		writeError(w, http.StatusInternalServerError, "failed to save order details")
	default:
		h.logger.Error("unexpected error: ", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// replayIdempotent writes the stored response for a repeated key and
// reports whether the request was already handled.
func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.Header.Get("Idempotency-Key")
	if h.idemp == nil || key == "" {
		return key, false
	}
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("idempotency lookup failed: ", err)
		return key, false
	}
	if existing == nil {
		return key, false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(existing.Status)
	w.Write(existing.Result)
	return key, true
}

func (h *Handlers) storeIdempotent(r *http.Request, key string, status int, body []byte) {
	if h.idemp == nil || key == "" {
		return
	}
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: body}); err != nil {
		h.logger.Error("idempotency store failed: ", err)
	}
}

// InitializeEvent handles POST /initialize.
func (h *Handlers) InitializeEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID      string `json:"eventId"`
		TotalTickets int    `json:"totalTickets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.InitializeEvent(r.Context(), req.EventID, req.TotalTickets); err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Event initialized successfully",
		"eventId": req.EventID,
	})
}

// BookTicket handles POST /book.
func (h *Handlers) BookTicket(w http.ResponseWriter, r *http.Request) {
	key, done := h.replayIdempotent(w, r)
	if done {
		return
	}

	var req struct {
		EventID string      `json:"eventId"`
		User    domain.User `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == "" {
		writeError(w, http.StatusBadRequest, "missing eventId or user information")
		return
	}

	res, err := h.svc.BookTicket(r.Context(), req.EventID, req.User)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	body := writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Ticket " + string(res.Status) + " successfully",
		"status":  res.Status,
		"orderId": res.OrderID,
	})
	h.storeIdempotent(r, key, http.StatusCreated, body)
}

// CancelBooking handles POST /cancel.
func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	key, done := h.replayIdempotent(w, r)
	if done {
		return
	}

	var req struct {
		EventID string `json:"eventId"`
		UserID  string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventID == "" {
		writeError(w, http.StatusBadRequest, "missing eventId or userId")
		return
	}

	res, err := h.svc.CancelBooking(r.Context(), req.EventID, req.UserID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"message": "Booking cancelled successfully"}
	if res.PromotedUserID != "" {
		resp["message"] = "Booking cancelled. Ticket assigned to waiting user " + res.PromotedUserID
		resp["promotedUserId"] = res.PromotedUserID
	}
	body := writeJSON(w, http.StatusOK, resp)
	h.storeIdempotent(r, key, http.StatusOK, body)
}

// GetStatus handles GET /status/{eventID}.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	snap, err := h.svc.GetStatus(r.Context(), eventID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// ListOrders handles GET /orders/{eventID}, the persisted order history.
func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	orders, err := h.svc.OrderHistory(r.Context(), eventID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	type orderResp struct {
		ID        string `json:"id"`
		EventID   string `json:"eventId"`
		UserID    string `json:"userId"`
		UserName  string `json:"userName"`
		Status    string `json:"status"`
		CreatedAt string `json:"createdAt"`
	}
	resp := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderResp{
			ID:        o.ID.String(),
			EventID:   o.EventID,
			UserID:    o.UserID,
			UserName:  o.UserName,
			Status:    string(o.Status),
			CreatedAt: o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
