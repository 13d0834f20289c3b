package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"stolik/internal/admission"
	"stolik/internal/config"
	"stolik/internal/database"
	"stolik/internal/domain"
	"stolik/internal/metrics"
	"stolik/internal/models"
	"stolik/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API. Transports stay thin: every decision
// about admission or lifecycle comes from the service layer.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      domain.ReservationService
	registry domain.ResourceRegistry
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc domain.ReservationService, registry domain.ResourceRegistry, cache domain.OccupancyCache, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, svc: svc, registry: registry, logger: logger}
	srv.auth = NewHTTPAuth(cfg, cache)

	mux.HandleFunc("/api/v1/reservations", srv.handleReservations)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationByID)
	mux.HandleFunc("/api/v1/resources", srv.handleResources)
	mux.HandleFunc("/api/v1/occupancy/", srv.handleOccupancy)

	handler := loggingMiddleware(logger, srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createReservation(w, r)
	case http.MethodGet:
		s.listReservations(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createReservationRequest struct {
	ResourceID int64  `json:"resource_id"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	PartySize  int64  `json:"party_size"`
	UserID     string `json:"user_id"`
}

func (s *HTTPServer) createReservation(w http.ResponseWriter, r *http.Request) {
	var body createReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(body.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	start, err := models.ParseClock(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start time; expected HH:MM")
		return
	}
	end, err := models.ParseClock(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end time; expected HH:MM")
		return
	}

	actor := actorFrom(r, s.cfg.Auth)
	userID := body.UserID
	if userID == "" {
		userID = actor.UserID
	}

	reservation, err := s.svc.Create(r.Context(), domain.CreateRequest{
		ResourceID: body.ResourceID,
		Date:       date,
		Start:      start,
		End:        end,
		PartySize:  body.PartySize,
		UserID:     userID,
		Actor:      actor,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reservationResponse(reservation))
}

func (s *HTTPServer) listReservations(w http.ResponseWriter, r *http.Request) {
	filter := models.ReservationFilter{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		UserID: strings.TrimSpace(r.URL.Query().Get("user_id")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("resource_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resource_id")
			return
		}
		filter.ResourceID = id
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		date, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	reservations, err := s.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(reservations))
	for i := range reservations {
		out = append(out, reservationResponse(&reservations[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

// handleReservationByID routes /api/v1/reservations/{id} and the lifecycle
// verbs /api/v1/reservations/{id}/cancel and /{id}/complete.
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/reservations/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "reservation id is required")
		return
	}
	id := parts[0]
	actor := actorFrom(r, s.cfg.Auth)

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		reservation, err := s.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationResponse(reservation))

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.svc.Delete(r.Context(), id, actor); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		reservation, err := s.svc.Cancel(r.Context(), id, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationResponse(reservation))

	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		reservation, err := s.svc.Complete(r.Context(), id, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reservationResponse(reservation))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resources, err := s.registry.ListResources(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].ID < resources[j].ID
	})

	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (s *HTTPServer) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/v1/occupancy/"
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	resourceID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid resource id")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	occ, err := s.svc.Occupancy(r.Context(), resourceID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, occ)
}

func reservationResponse(r *models.Reservation) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"resource_id":   r.ResourceID,
		"resource_name": r.ResourceName,
		"date":          r.Date.Format(models.DateLayout),
		"start":         models.FormatClock(r.Start),
		"end":           models.FormatClock(r.End),
		"party_size":    r.PartySize,
		"user_id":       r.UserID,
		"status":        r.Status,
	}
}

// writeServiceError maps domain errors onto HTTP statuses. Admission
// rejections carry their reason so the client can distinguish a full slot
// from a malformed request.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *admission.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":                   conflict.Error(),
			"conflicting_reservation": conflict.ReservationID,
		})
		return
	}

	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, admission.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, admission.ErrResourceUnavailable):
		return http.StatusNotFound
	case errors.Is(err, database.ErrReservationNotFound),
		errors.Is(err, database.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, admission.ErrCapacityExceeded),
		errors.Is(err, admission.ErrSlotConflict),
		errors.Is(err, database.ErrAlreadyCanceled),
		errors.Is(err, database.ErrAlreadyCompleted),
		errors.Is(err, database.ErrNotTerminal):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		base.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

// endpointLabel collapses paths with IDs to keep metric cardinality bounded.
func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/reservations"):
		return "/api/v1/reservations"
	case strings.HasPrefix(path, "/api/v1/occupancy"):
		return "/api/v1/occupancy"
	case strings.HasPrefix(path, "/api/v1/resources"):
		return "/api/v1/resources"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
