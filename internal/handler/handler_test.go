package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/internal/auth"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/internal/repository"
	"github.com/khainghsuthwe/ReserveMyTable/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testFixture = `{
  "seed_days": 1,
  "restaurants": [
    {
      "id": "golden-lotus",
      "name": "Golden Lotus",
      "table_types": [
        {"type": "2-person", "description": "Window table", "seats": 2},
        {"type": "family", "description": "Round table", "seats": 10}
      ],
      "schedule": [
        {"slot_id": "dinner-1800", "time": "18:00", "tables": {"2-person": 2, "family": 1}},
        {"slot_id": "lunch-1200", "time": "12:00", "tables": {"2-person": 3}}
      ]
    },
    {
      "id": "sakura-tei",
      "name": "Sakura Tei",
      "table_types": [{"type": "counter", "description": "Counter seat", "seats": 1}],
      "schedule": [{"slot_id": "lunch-1200", "time": "12:00", "tables": {"counter": 4}}]
    }
  ]
}`

const (
	slotPath  = "/api/v1/restaurants/golden-lotus/availability/2025-03-14/slots/dinner-1800"
	tablePath = slotPath + "/tables/2-person"
)

var (
	customer = &domain.Principal{ID: "user-1", Name: "Aye", Email: "aye@example.com", Role: domain.RoleCustomer}
	stranger = &domain.Principal{ID: "user-2", Name: "Min", Email: "min@example.com", Role: domain.RoleCustomer}
	owner    = &domain.Principal{ID: "owner-1", Name: "Owner", Email: "owner@example.com", Role: domain.RoleOwner}
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	fx, err := repository.ParseFixture(strings.NewReader(testFixture))
	require.NoError(t, err)

	store := repository.NewMemoryAvailabilityRepository()
	reservations := repository.NewMemoryReservationRepository()
	reviews := repository.NewMemoryReviewRepository()
	catalog := service.NewCatalogService(repository.NewFixtureRestaurantRepository(fx))
	publisher := service.NewNoOpEventPublisher()

	availability := service.NewAvailabilityService(store, reservations, catalog, publisher, nil)
	_, err = availability.Seed(context.Background(), fx.Slots(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	reviewService := service.NewReviewService(reviews, catalog, publisher)
	h := &Handlers{
		Health:       NewHealthHandler(nil, nil),
		Restaurant:   NewRestaurantHandler(catalog, reviewService),
		Availability: NewAvailabilityHandler(availability),
		Reservation:  NewReservationHandler(service.NewReservationService(reservations, store, catalog, publisher)),
		Review:       NewReviewHandler(reviewService),
	}

	tokens := auth.NewTokenManager("test-secret", "reservemytable", time.Hour)
	router := gin.New()
	router.Use(auth.Authenticate(tokens))
	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	RegisterRoutes(router.Group("/api/v1"), h)

	return &testServer{t: t, router: router, tokens: tokens}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func (s *testServer) do(method, path string, as *domain.Principal, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, err := s.tokens.Issue(as)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type slotBody struct {
	Capacity  int `json:"capacity"`
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Tables    []struct {
		Type      string `json:"type"`
		Capacity  int    `json:"capacity"`
		Available int    `json:"available"`
		Reserved  int    `json:"reserved"`
	} `json:"tables"`
}

func (b slotBody) table(t string) (capacity, available, reserved int) {
	for _, tc := range b.Tables {
		if tc.Type == t {
			return tc.Capacity, tc.Available, tc.Reserved
		}
	}
	return -1, -1, -1
}

func reserveBody(tableType string, partySize int) map[string]interface{} {
	return map[string]interface{}{
		"restaurant_id": "golden-lotus",
		"date":          "2025-03-14",
		"slot_id":       "dinner-1800",
		"table_type":    tableType,
		"party_size":    partySize,
		"contact_email": "guest@example.com",
	}
}

func TestReservationFlow(t *testing.T) {
	s := newTestServer(t)

	var ids []string
	for i := 0; i < 2; i++ {
		w, env := s.do(http.MethodPost, "/api/v1/reservations", customer, reserveBody("2-person", 2))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		res := decode[map[string]interface{}](t, env.Data)
		assert.Equal(t, "confirmed", res["status"])
		assert.Equal(t, "18:00", res["time"])
		ids = append(ids, res["id"].(string))
	}

	w, env := s.do(http.MethodGet, slotPath, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	capacity, available, reserved := decode[slotBody](t, env.Data).table("2-person")
	assert.Equal(t, []int{2, 0, 2}, []int{capacity, available, reserved})

	w, env = s.do(http.MethodPost, "/api/v1/reservations", customer, reserveBody("2-person", 2))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SLOT_UNAVAILABLE", env.Error.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+ids[0]+"/cancel", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodPost, "/api/v1/reservations/"+ids[0]+"/cancel", customer, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_CANCELLED", env.Error.Code)

	_, env = s.do(http.MethodGet, slotPath, nil, nil)
	capacity, available, reserved = decode[slotBody](t, env.Data).table("2-person")
	assert.Equal(t, []int{2, 1, 1}, []int{capacity, available, reserved})

	w, env = s.do(http.MethodGet, "/api/v1/reservations", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.Meta.Total)
}

func TestReserve_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantErr  string
	}{
		{"missing fields", map[string]interface{}{"party_size": 2}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"zero party", reserveBody("2-person", 0), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"party too large", reserveBody("2-person", 3), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown table type", reserveBody("banquet", 2), http.StatusNotFound, "NOT_FOUND"},
	}

	bad := reserveBody("2-person", 2)
	bad["contact_email"] = "not-an-email"
	tests = append(tests, struct {
		name     string
		body     map[string]interface{}
		wantCode int
		wantErr  string
	}{"bad email", bad, http.StatusBadRequest, "VALIDATION_ERROR"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/v1/reservations", nil, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantErr, env.Error.Code)
		})
	}

	_, env := s.do(http.MethodGet, slotPath, nil, nil)
	_, available, _ := decode[slotBody](t, env.Data).table("2-person")
	assert.Equal(t, 2, available)
}

func TestReservation_Authorization(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/reservations", customer, reserveBody("family", 6))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]interface{}](t, env.Data)["id"].(string)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+id+"/cancel", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+id+"/cancel", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/reservations/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/reservations/"+id, customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/reservations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/reservations/missing", customer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, slotPath+"/reservations", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodGet, slotPath+"/reservations", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Meta.Total)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+id+"/cancel", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuestReservation(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/reservations", nil, reserveBody("2-person", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]interface{}](t, env.Data)["id"].(string)

	w, _ = s.do(http.MethodGet, "/api/v1/reservations/"+id, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+id+"/cancel", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/reservations/"+id+"/cancel", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResize(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodPatch, tablePath, nil, map[string]int{"delta": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPatch, tablePath, customer, map[string]int{"delta": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPatch, tablePath, owner, map[string]int{"delta": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = s.do(http.MethodPatch, tablePath, owner, map[string]int{"delta": 3})
	require.Equal(t, http.StatusOK, w.Code)
	capacity, available, reserved := decode[slotBody](t, env.Data).table("2-person")
	assert.Equal(t, []int{5, 5, 0}, []int{capacity, available, reserved})

	w, env = s.do(http.MethodPatch, tablePath, owner, map[string]int{"delta": -6})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CAPACITY_ERROR", env.Error.Code)
}

func TestAvailabilityDay(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/restaurants/golden-lotus/availability/2025-03-14", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	day := decode[struct {
		RestaurantID string `json:"restaurant_id"`
		Slots        []struct {
			SlotID string `json:"slot_id"`
			Time   string `json:"time"`
		} `json:"slots"`
	}](t, env.Data)
	assert.Equal(t, "golden-lotus", day.RestaurantID)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "lunch-1200", day.Slots[0].SlotID)
	assert.Equal(t, "dinner-1800", day.Slots[1].SlotID)

	w, _ = s.do(http.MethodGet, "/api/v1/restaurants/golden-lotus/availability/14-03-2025", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/restaurants/nowhere/availability/2025-03-14", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/restaurants/golden-lotus/availability/2025-03-14/slots/brunch", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviews(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/restaurants/golden-lotus/reviews"

	w, _ := s.do(http.MethodPost, path, nil, map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for _, rating := range []int{0, 6} {
		w, env := s.do(http.MethodPost, path, customer, map[string]interface{}{"rating": rating})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	}

	w, _ = s.do(http.MethodPost, path, customer, map[string]interface{}{"rating": 5, "comment": "  Great dumplings "})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = s.do(http.MethodPost, path, stranger, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Rating struct {
			Average float64 `json:"average"`
			Count   int     `json:"count"`
		} `json:"rating"`
		Reviews []struct {
			UserName string `json:"user_name"`
			Comment  string `json:"comment"`
		} `json:"reviews"`
	}](t, env.Data)
	assert.Equal(t, 2, list.Rating.Count)
	assert.InDelta(t, 4.5, list.Rating.Average, 1e-9)
	require.Len(t, list.Reviews, 2)
	assert.Equal(t, "Aye", list.Reviews[0].UserName)
	assert.Equal(t, "Great dumplings", list.Reviews[0].Comment)

	w, _ = s.do(http.MethodPost, "/api/v1/restaurants/nowhere/reviews", customer, map[string]interface{}{"rating": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestaurants(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodPost, "/api/v1/restaurants/sakura-tei/reviews", customer, map[string]interface{}{"rating": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/restaurants", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, env.Meta.Total)

	w, env = s.do(http.MethodGet, "/api/v1/restaurants/sakura-tei", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	r := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "Sakura Tei", r["name"])
	assert.Equal(t, float64(1), r["rating"].(map[string]interface{})["count"])

	w, env = s.do(http.MethodGet, "/api/v1/restaurants/popular?limit=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranked := decode[[]map[string]interface{}](t, env.Data)
	require.Len(t, ranked, 1)
	assert.Equal(t, "sakura-tei", ranked[0]["restaurant_id"])
	assert.Equal(t, float64(1), ranked[0]["rank"])

	w, _ = s.do(http.MethodGet, "/api/v1/restaurants/popular?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/restaurants/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{domain.ErrInvalidPartySize, http.StatusBadRequest, "VALIDATION_ERROR"},
		{domain.ErrReservationNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrSlotUnavailable, http.StatusConflict, "SLOT_UNAVAILABLE"},
		{domain.ErrCapacity, http.StatusConflict, "CAPACITY_ERROR"},
		{domain.ErrAlreadyCancelled, http.StatusConflict, "ALREADY_CANCELLED"},
		{domain.ErrCounterChanged, http.StatusConflict, "COUNTER_CHANGED"},
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
		{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.wantErr+`"`)
		})
	}
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	router := gin.New()
	healthy := &HealthHandler{components: map[string]HealthChecker{"database": fakeChecker{}, "redis": nil}}
	broken := &HealthHandler{components: map[string]HealthChecker{"redis": fakeChecker{err: errors.New("dial tcp: refused")}}}
	router.GET("/health", healthy.Health)
	router.GET("/ready", healthy.Ready)
	router.GET("/broken", broken.Ready)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "healthy", ready.Components["database"])
	assert.Equal(t, "not configured", ready.Components["redis"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
