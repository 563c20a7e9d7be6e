package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/auth"
	"github.com/nekogravitycat/space-reservation-backend/internal/lock"
	"github.com/nekogravitycat/space-reservation-backend/internal/payment"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/money"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	"github.com/nekogravitycat/space-reservation-backend/internal/resource"
)

func TestPaymentFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	catalog := resource.NewService(resource.NewMemoryRepository(), nil)
	res, err := catalog.Create(ctx, resource.CreateRequest{Name: "Field 2", HourlyRate: money.FromMajor(50)})
	require.NoError(t, err)

	scheduler := reservation.NewService(reservation.NewMemoryRepository(), catalog, lock.NewKeyedMutex())
	payments := payment.NewService(payment.NewMemoryRepository(), scheduler, nil)
	scheduler.OnStatusChange(payments.HandleReservationStatus)

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	r, err := scheduler.Create(ctx, reservation.CreateRequest{
		HolderID:   "alice",
		ResourceID: res.ID,
		StartTime:  start,
		EndTime:    start.Add(3*time.Hour + 30*time.Minute),
	})
	require.NoError(t, err)

	jwt := auth.NewJWTManager("test-secret", time.Hour)
	router := gin.New()
	RegisterRoutes(router.Group("/v1"), NewHandler(payments), auth.AuthRequired(jwt), auth.RequireAdmin())

	alice, err := jwt.GenerateAccessToken("alice", "")
	require.NoError(t, err)
	admin, err := jwt.GenerateAccessToken("root", auth.RoleAdmin)
	require.NoError(t, err)

	do := func(method, path string, body any, token string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/v1/payments", gin.H{"reservation_id": r.ID, "external_ref": "pi_abc"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var opened PaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
	assert.Equal(t, money.Cents(17500), opened.Amount)
	assert.Contains(t, w.Body.String(), `"amount":"175.00"`)

	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/v1/payments/"+opened.ID+"/succeed", nil, alice).Code)

	w = do(http.MethodPost, "/v1/payments/"+opened.ID+"/succeed", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	confirmed, err := scheduler.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)

	w = do(http.MethodGet, "/v1/payments?reservation_id="+r.ID, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"succeeded"`)

	w = do(http.MethodPost, "/v1/payments/"+opened.ID+"/refund", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cancelled, err := scheduler.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
}
