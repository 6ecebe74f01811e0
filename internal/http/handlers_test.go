package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/ticket-inventory/internal/domain"
	"github.com/tickethub/ticket-inventory/internal/gate"
	httphandler "github.com/tickethub/ticket-inventory/internal/http"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"github.com/tickethub/ticket-inventory/internal/registry"
	"github.com/tickethub/ticket-inventory/internal/service"
)

type memLedger struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (m *memLedger) RecordAttempt(ctx context.Context, eventID, userID, userName string, status domain.Status) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := domain.Order{ID: uuid.New(), EventID: eventID, UserID: userID, UserName: userName, Status: status, CreatedAt: time.Now()}
	m.orders = append(m.orders, o)
	return o.ID, nil
}

func (m *memLedger) UpdateStatus(ctx context.Context, eventID, userID string, from, to domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.orders) - 1; i >= 0; i-- {
		o := &m.orders[i]
		if o.EventID == eventID && o.UserID == userID && o.Status == from {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedger) ListByEvent(ctx context.Context, eventID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.EventID == eventID {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := observability.NewNopLogger()
	svc := service.New(registry.New(), gate.New(), &memLedger{}, nil, nil, logger, 1)
	handlers := httphandler.NewHandlers(svc, nil, logger)
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, logger, nil))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestAPI_FullBookingFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/initialize", `{"eventId":"E1","totalTickets":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("initialize status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	var bookResp struct {
		Status  string `json:"status"`
		OrderID string `json:"orderId"`
		Message string `json:"message"`
	}
	resp = post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u1","name":"Alice"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("book status = %d, want 201", resp.StatusCode)
	}
	decode(t, resp, &bookResp)
	if bookResp.Status != "booked" || bookResp.OrderID == "" {
		t.Errorf("book response = %+v, want booked with order id", bookResp)
	}

	post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u2","name":"Bob"}}`).Body.Close()

	resp = post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u3","name":"Carol"}}`)
	decode(t, resp, &bookResp)
	if bookResp.Status != "waiting" {
		t.Errorf("third booking status = %q, want waiting", bookResp.Status)
	}

	var cancelResp struct {
		Message        string `json:"message"`
		PromotedUserID string `json:"promotedUserId"`
	}
	resp = post(t, srv.URL+"/cancel", `{"eventId":"E1","userId":"u1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", resp.StatusCode)
	}
	decode(t, resp, &cancelResp)
	if cancelResp.PromotedUserID != "u3" {
		t.Errorf("promoted = %q, want u3", cancelResp.PromotedUserID)
	}

	var snap domain.StatusSnapshot
	resp, err := http.Get(srv.URL + "/status/E1")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &snap)
	if snap.AvailableTickets != 0 || snap.WaitingListCount != 0 {
		t.Errorf("status = %+v, want 0 available, 0 waiting", snap)
	}
}

func TestAPI_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"initialize invalid capacity", "POST", "/initialize", `{"eventId":"E1","totalTickets":0}`, http.StatusBadRequest},
		{"book unknown event", "POST", "/book", `{"eventId":"nope","user":{"id":"u1","name":"A"}}`, http.StatusNotFound},
		{"book malformed body", "POST", "/book", `{"eventId":`, http.StatusBadRequest},
		{"cancel unknown event", "POST", "/cancel", `{"eventId":"nope","userId":"u1"}`, http.StatusNotFound},
		{"status unknown event", "GET", "/status/nope", "", http.StatusNotFound},
		{"orders unknown event", "GET", "/orders/nope", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *http.Response
			var err error
			if tc.method == "GET" {
				resp, err = http.Get(srv.URL + tc.path)
			} else {
				resp, err = http.Post(srv.URL+tc.path, "application/json", strings.NewReader(tc.body))
			}
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestAPI_DuplicateInitializeConflicts(t *testing.T) {
	srv := newTestServer(t)

	post(t, srv.URL+"/initialize", `{"eventId":"E1","totalTickets":1}`).Body.Close()
	resp := post(t, srv.URL+"/initialize", `{"eventId":"E1","totalTickets":1}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate initialize status = %d, want 409", resp.StatusCode)
	}
}

func TestAPI_DuplicateBookConflicts(t *testing.T) {
	srv := newTestServer(t)

	post(t, srv.URL+"/initialize", `{"eventId":"E1","totalTickets":2}`).Body.Close()
	post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u1","name":"Alice"}}`).Body.Close()
	resp := post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u1","name":"Alice"}}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate book status = %d, want 409", resp.StatusCode)
	}
}

func TestAPI_OrderHistory(t *testing.T) {
	srv := newTestServer(t)

	post(t, srv.URL+"/initialize", `{"eventId":"E1","totalTickets":1}`).Body.Close()
	post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u1","name":"Alice"}}`).Body.Close()
	post(t, srv.URL+"/book", `{"eventId":"E1","user":{"id":"u2","name":"Bob"}}`).Body.Close()

	resp, err := http.Get(srv.URL + "/orders/E1")
	if err != nil {
		t.Fatal(err)
	}
	var orders []struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}
	decode(t, resp, &orders)
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2", len(orders))
	}
	if orders[0].Status != "booked" || orders[1].Status != "waiting" {
		t.Errorf("order statuses = %v, want booked then waiting", orders)
	}
}
