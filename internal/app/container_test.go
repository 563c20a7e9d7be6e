package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/notify"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	t      *testing.T
	c      *Container
	admin  string
	alice  string
	bob    string
	events *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pub := &recordingPublisher{}
	c := NewContainer(Config{
		JWTSecret: "test-secret",
		Publisher: pub,
		Now:       func() time.Time { return time.Date(2030, 2, 28, 12, 0, 0, 0, time.UTC) },
	})

	h := &harness{t: t, c: c, events: pub}
	h.admin = h.token("admin-1", auth.RoleAdmin)
	h.alice = h.token("alice", "")
	h.bob = h.token("bob", "")
	return h
}

func (h *harness) token(userID, role string) string {
	tok, err := h.c.JWTManager.GenerateAccessToken(userID, role)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.c.Router.ServeHTTP(w, req)
	return w
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestReservationPaymentFlow(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/v1/resources", map[string]any{"name": "Room 1", "hourly_rate": "50.00"}, h.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resourceID := decodeMap(t, w)["id"].(string)

	slot := map[string]any{
		"resource_id": resourceID,
		"start_time":  "2030-03-01T10:00:00Z",
		"end_time":    "2030-03-01T12:00:00Z",
	}
	w = h.do(http.MethodPost, "/v1/reservations", slot, h.alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeMap(t, w)
	reservationID := created["id"].(string)
	assert.Equal(t, "100.00", created["total_price"])
	assert.Equal(t, "pending", created["status"])

	overlapping := map[string]any{
		"resource_id": resourceID,
		"start_time":  "2030-03-01T11:00:00Z",
		"end_time":    "2030-03-01T13:00:00Z",
	}
	w = h.do(http.MethodPost, "/v1/reservations", overlapping, h.bob)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/v1/payments", map[string]any{"reservation_id": reservationID}, h.alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decodeMap(t, w)
	assert.Equal(t, "100.00", payment["amount"])

	w = h.do(http.MethodPost, "/v1/payments/"+payment["id"].(string)+"/succeed", nil, h.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "succeeded", decodeMap(t, w)["status"])

	w = h.do(http.MethodGet, "/v1/reservations/"+reservationID, nil, h.alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", decodeMap(t, w)["status"])

	// Bob cannot see Alice's reservation.
	w = h.do(http.MethodGet, "/v1/reservations/"+reservationID, nil, h.bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodDelete, "/v1/resources/"+resourceID, nil, h.admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, []string{"reservation.pending", "reservation.confirmed"}, h.events.types())
}

func TestCancelRefundsSettledPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w := h.do(http.MethodPost, "/v1/resources", map[string]any{"name": "Room 2", "hourly_rate": "20.00"}, h.admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resourceID := decodeMap(t, w)["id"].(string)

	w = h.do(http.MethodPost, "/v1/reservations", map[string]any{
		"resource_id": resourceID,
		"start_time":  "2030-03-02T09:00:00Z",
		"end_time":    "2030-03-02T10:30:00Z",
	}, h.alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reservationID := decodeMap(t, w)["id"].(string)

	w = h.do(http.MethodPost, "/v1/payments", map[string]any{"reservation_id": reservationID}, h.alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paymentID := decodeMap(t, w)["id"].(string)

	w = h.do(http.MethodPost, "/v1/payments/"+paymentID+"/succeed", nil, h.admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/v1/reservations/"+reservationID+"/cancel", nil, h.alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decodeMap(t, w)["status"])

	p, err := h.c.Payments.GetByID(ctx, paymentID)
	require.NoError(t, err)
	assert.Equal(t, "refunded", string(p.Status))

	// The slot is free again and the resource can be removed once nothing is active.
	w = h.do(http.MethodDelete, "/v1/resources/"+resourceID, nil, h.admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/v1/resources", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/v1/resources", map[string]any{"name": "x", "hourly_rate": "1.00"}, h.alice)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "space_reservation_http_requests_total")
}
