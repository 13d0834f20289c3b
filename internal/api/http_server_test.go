package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"stolik/internal/config"
	"stolik/internal/database"
	"stolik/internal/events"
	"stolik/internal/models"
	"stolik/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg config.APIConfig) (*httptest.Server, *database.DB) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := service.NewReservationService(db, db, events.NewEventBus(), nil, &logger)
	server := NewHTTPServer(cfg, svc, db, nil, &logger)
	ts := httptest.NewServer(server.server.Handler)
	t.Cleanup(ts.Close)
	return ts, db
}

func openConfig() config.APIConfig {
	// Auth disabled entirely; handlers under test directly.
	return config.APIConfig{Enabled: false}
}

func seedTestResource(t *testing.T, db *database.DB, id, capacity int64) *models.Resource {
	t.Helper()
	resource := &models.Resource{
		ID:       id,
		Name:     fmt.Sprintf("Table %d", id),
		Kind:     models.KindTable,
		Capacity: capacity,
		Status:   models.ResourceAvailable,
	}
	require.NoError(t, db.UpsertResource(context.Background(), resource))
	return resource
}

func postJSON(t *testing.T, url string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestCreateReservationEndpoint(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	resp := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1,
		"date":        "2024-06-01",
		"start":       "18:00",
		"end":         "19:00",
		"party_size":  2,
		"user_id":     "alice",
	}, nil)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "18:00", body["start"])
}

func TestCreateReservationValidation(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{
			name: "ReversedInterval",
			payload: map[string]any{
				"resource_id": 1, "date": "2024-06-01",
				"start": "19:00", "end": "18:00", "party_size": 2, "user_id": "u",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "BadDate",
			payload: map[string]any{
				"resource_id": 1, "date": "01.06.2024",
				"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "u",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "BadClock",
			payload: map[string]any{
				"resource_id": 1, "date": "2024-06-01",
				"start": "6pm", "end": "19:00", "party_size": 2, "user_id": "u",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "UnknownResource",
			payload: map[string]any{
				"resource_id": 77, "date": "2024-06-01",
				"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "u",
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "PartyOverCapacity",
			payload: map[string]any{
				"resource_id": 1, "date": "2024-06-01",
				"start": "18:00", "end": "19:00", "party_size": 9, "user_id": "u",
			},
			wantStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/v1/reservations", tt.payload, nil)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestConflictResponseNamesBlocker(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	first := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1, "date": "2024-06-01",
		"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "alice",
	}, nil)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	winner := decodeBody(t, first)["id"].(string)

	second := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1, "date": "2024-06-01",
		"start": "18:30", "end": "19:30", "party_size": 2, "user_id": "bob",
	}, nil)
	require.Equal(t, http.StatusConflict, second.StatusCode)
	body := decodeBody(t, second)
	assert.Equal(t, winner, body["conflicting_reservation"])
}

func TestReservationLifecycleEndpoints(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	created := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1, "date": "2024-06-01",
		"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "alice",
	}, nil)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	id := decodeBody(t, created)["id"].(string)

	// GET by id.
	resp, err := http.Get(ts.URL + "/api/v1/reservations/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, decodeBody(t, resp)["id"])

	// A stranger cancel is forbidden.
	resp = postJSON(t, ts.URL+"/api/v1/reservations/"+id+"/cancel", nil, map[string]string{
		"x-actor-id": "mallory",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Owner cancels.
	resp = postJSON(t, ts.URL+"/api/v1/reservations/"+id+"/cancel", nil, map[string]string{
		"x-actor-id": "alice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "canceled", decodeBody(t, resp)["status"])

	// Second cancel conflicts.
	resp = postJSON(t, ts.URL+"/api/v1/reservations/"+id+"/cancel", nil, map[string]string{
		"x-actor-id": "alice",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCompleteRequiresPrivilegedRole(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	created := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1, "date": "2024-06-01",
		"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "alice",
	}, nil)
	id := decodeBody(t, created)["id"].(string)

	resp := postJSON(t, ts.URL+"/api/v1/reservations/"+id+"/complete", nil, map[string]string{
		"x-actor-id": "alice",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/v1/reservations/"+id+"/complete", nil, map[string]string{
		"x-actor-id": "m-1", "x-actor-role": "manager",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decodeBody(t, resp)["status"])
}

func TestListReservationsFilters(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)
	seedTestResource(t, db, 2, 2)

	for _, p := range []map[string]any{
		{"resource_id": 1, "date": "2024-06-01", "start": "10:00", "end": "11:00", "party_size": 2, "user_id": "alice"},
		{"resource_id": 1, "date": "2024-06-02", "start": "10:00", "end": "11:00", "party_size": 2, "user_id": "bob"},
		{"resource_id": 2, "date": "2024-06-01", "start": "10:00", "end": "11:00", "party_size": 2, "user_id": "alice"},
	} {
		resp := postJSON(t, ts.URL+"/api/v1/reservations", p, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/v1/reservations?resource_id=1")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Len(t, body["reservations"], 2)

	resp, err = http.Get(ts.URL + "/api/v1/reservations?user_id=alice&date=2024-06-01")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Len(t, body["reservations"], 2)

	resp, err = http.Get(ts.URL + "/api/v1/reservations?status=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResourcesEndpoint(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 2, 2)
	seedTestResource(t, db, 1, 4)

	resp, err := http.Get(ts.URL + "/api/v1/resources")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var body struct {
		Resources []models.Resource `json:"resources"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Resources, 2)
	assert.Equal(t, int64(1), body.Resources[0].ID)
}

func TestOccupancyEndpoint(t *testing.T) {
	ts, db := newTestServer(t, openConfig())
	seedTestResource(t, db, 1, 4)

	resp := postJSON(t, ts.URL+"/api/v1/reservations", map[string]any{
		"resource_id": 1, "date": "2024-06-01",
		"start": "18:00", "end": "19:00", "party_size": 2, "user_id": "alice",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/occupancy/1?date=2024-06-01")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	var occ models.DayOccupancy
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&occ))
	assert.Equal(t, int64(1), occ.ResourceID)
	assert.Equal(t, int64(4), occ.Capacity)
	require.Len(t, occ.Booked, 1)
	assert.Equal(t, "18:00", occ.Booked[0].Start)

	resp, err = http.Get(ts.URL + "/api/v1/occupancy/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, openConfig())

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/resources", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
