// README: Handler tests driving the full router against an in-memory dispatch service.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "rideshare/internal/http"
	"rideshare/internal/modules/dispatch"
	"rideshare/internal/modules/fleet"
)

func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := dispatch.NewService(fleet.NewRegistry())
	return api.NewRouter(svc, nil, http.NotFoundHandler())
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func seedFleet(t *testing.T, r *gin.Engine) {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/api/riders", map[string]any{
		"rider_id": "R001", "name": "Alice", "location": map[string]any{"lat": 12.9716, "lng": 77.5946},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	for _, d := range []map[string]any{
		{"driver_id": "D001", "name": "Bob", "vehicle_class": "sedan", "rating": 4.8,
			"location": map[string]any{"lat": 12.9986, "lng": 77.5946}},
		{"driver_id": "D002", "name": "Carol", "vehicle_class": "sedan", "rating": 4.9,
			"location": map[string]any{"lat": 12.9806, "lng": 77.5946}},
	} {
		w := doRequest(r, http.MethodPost, "/api/drivers", d)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
}

func requestBody(class string) map[string]any {
	return map[string]any{
		"rider_id":      "R001",
		"pickup":        map[string]any{"lat": 12.9716, "lng": 77.5946, "label": "MG Road"},
		"dropoff":       map[string]any{"lat": 13.0716, "lng": 77.5946},
		"vehicle_class": class,
	}
}

func TestRideFlow(t *testing.T) {
	r := buildTestRouter(t)
	seedFleet(t, r)

	w := doRequest(r, http.MethodPost, "/api/rides", requestBody("sedan"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "RIDE_1", body["ride_id"])
	assert.Equal(t, "D002", body["driver_id"])
	assert.Equal(t, "driver_assigned", body["status"])
	assert.Equal(t, "normal", body["category"])

	w = doRequest(r, http.MethodPost, "/api/rides/RIDE_1/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode(t, w)["status"])

	w = doRequest(r, http.MethodPost, "/api/rides/RIDE_1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "completed", body["status"])
	assert.Greater(t, body["fare"].(float64), 0.0)

	w = doRequest(r, http.MethodGet, "/api/drivers/D002", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, []any{"RIDE_1"}, body["history"])

	w = doRequest(r, http.MethodGet, "/api/rides", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rides"], 1)
}

func TestErrorMapping(t *testing.T) {
	r := buildTestRouter(t)
	seedFleet(t, r)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown vehicle class", http.MethodPost, "/api/rides", requestBody("zeppelin"), http.StatusBadRequest},
		{"no match", http.MethodPost, "/api/rides", requestBody("suv"), http.StatusConflict},
		{"unknown ride", http.MethodGet, "/api/rides/RIDE_42", nil, http.StatusNotFound},
		{"start unknown ride", http.MethodPost, "/api/rides/RIDE_42/start", nil, http.StatusNotFound},
		{"invalid ride id", http.MethodGet, "/api/rides/bad%20id", nil, http.StatusBadRequest},
		{"duplicate rider", http.MethodPost, "/api/riders", map[string]any{"rider_id": "R001"}, http.StatusConflict},
		{"rating out of range", http.MethodPost, "/api/riders", map[string]any{"rider_id": "R002", "rating": 9}, http.StatusBadRequest},
		{"unknown driver status", http.MethodPut, "/api/drivers/D001/status", map[string]any{"status": "asleep"}, http.StatusBadRequest},
		{"unknown driver", http.MethodPut, "/api/drivers/D999/location", map[string]any{"lat": 1, "lng": 2}, http.StatusNotFound},
		{"unknown policy", http.MethodPut, "/api/dispatch/matching", map[string]any{"policy": "random"}, http.StatusBadRequest},
		{"bad discount", http.MethodPut, "/api/dispatch/fare", map[string]any{"discount": 2}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestCompleteBeforeStartConflicts(t *testing.T) {
	r := buildTestRouter(t)
	seedFleet(t, r)
	require.Equal(t, http.StatusCreated, doRequest(r, http.MethodPost, "/api/rides", requestBody("sedan")).Code)

	w := doRequest(r, http.MethodPost, "/api/rides/RIDE_1/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodPut, "/api/drivers/D002/status", map[string]any{"status": "offline"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodPost, "/api/rides/RIDE_1/cancel", map[string]any{"reason": "changed plans"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "changed plans", body["cancel_reason"])
}

func TestDispatchConfiguration(t *testing.T) {
	r := buildTestRouter(t)
	seedFleet(t, r)

	w := doRequest(r, http.MethodPut, "/api/dispatch/matching", map[string]any{"policy": "highest_rated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Highest Rated Driver Strategy", decode(t, w)["matching_policy"])

	w = doRequest(r, http.MethodPut, "/api/dispatch/fare", map[string]any{"surge": 2.0, "discount": 0.1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Base Fare Calculator + Surge Pricing + Discount Applied", decode(t, w)["fare_description"])

	w = doRequest(r, http.MethodGet, "/api/dispatch/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 1.0, body["riders"])
	assert.Equal(t, 2.0, body["drivers"])
	assert.Equal(t, 2.0, body["available_drivers"])
	assert.Equal(t, 0.0, body["rides"])
	assert.Equal(t, "Highest Rated Driver Strategy", body["matching_policy"])
	assert.Equal(t, []any{}, body["sinks"])
}

func TestSetFareKeepsExplicitZeroBaseFare(t *testing.T) {
	r := buildTestRouter(t)
	seedFleet(t, r)

	w := doRequest(r, http.MethodPut, "/api/dispatch/fare", map[string]any{"base_fare": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(r, http.MethodPost, "/api/rides", requestBody("sedan"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doRequest(r, http.MethodPost, "/api/rides/RIDE_1/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(r, http.MethodPost, "/api/rides/RIDE_1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)

	// no base fare: distance at the default 10/km with the sedan multiplier 1.2
	dist := body["distance_km"].(float64)
	assert.InDelta(t, dist*10*1.2, body["fare"].(float64), 0.01)
}

func TestHealth(t *testing.T) {
	r := buildTestRouter(t)
	w := doRequest(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
