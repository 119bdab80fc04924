package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"termin/internal/config"
	"termin/internal/database"
	"termin/internal/domain"
	"termin/internal/export"
	"termin/internal/metrics"
	"termin/internal/models"
	"termin/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer is the outer surface for both the customer and the admin
// apps.
type HTTPServer struct {
	cfg          config.APIConfig
	bookings     *service.BookingService
	moderation   *service.ModerationService
	availability *service.AvailabilityService
	exporter     *export.ScheduleExporter
	catalog      *service.ShopCatalog
	server       *http.Server
	auth         *HTTPAuth
	logger       *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, moderation *service.ModerationService, availability *service.AvailabilityService, exporter *export.ScheduleExporter, catalog *service.ShopCatalog, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:          cfg,
		bookings:     bookings,
		moderation:   moderation,
		availability: availability,
		exporter:     exporter,
		catalog:      catalog,
		logger:       logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/availability/", srv.handleAvailability)
	mux.HandleFunc("/api/v1/markers", srv.handleMarkers)
	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/catalog", srv.handleCatalog)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/blocks", srv.handleBlocks)
	mux.HandleFunc("/api/v1/watch", srv.handleWatch)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// Handler exposes the routed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
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

// writeDomainError maps store and validation failures to HTTP status
// codes. Conflicts are 409 so the clients know a refresh, not a retry,
// is the fix.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrValidation), errors.Is(err, database.ErrPastDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotUnavailable), errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// GET /api/v1/availability/{date}?barber_id=
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimPrefix(r.URL.Path, "/api/v1/availability/")
	if date == "" || strings.Contains(date, "/") {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))

	day, err := s.availability.Day(r.Context(), date, barberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date,
		"barber_id": barberID,
		"slots":     day,
	})
}

// GET /api/v1/markers?year=&month=&barber_id=
func (s *HTTPServer) handleMarkers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("markers")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	barberID := strings.TrimSpace(r.URL.Query().Get("barber_id"))

	markers, err := s.availability.MonthMarkers(r.Context(), year, time.Month(month), barberID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"markers": markers})
}

// GET /api/v1/slots
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	catalog := s.availability.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{
		"morning":   catalog.Morning,
		"afternoon": catalog.Afternoon,
		"evening":   catalog.Evening,
	})
}

// GET /api/v1/catalog
func (s *HTTPServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("catalog")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"services": s.catalog.Services,
		"barbers":  s.catalog.Barbers,
	})
}

// POST /api/v1/bookings submits; GET lists with filters.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	switch r.Method {
	case http.MethodPost:
		var req service.BookingRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		booking, err := s.bookings.Submit(r.Context(), &req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)

	case http.MethodGet:
		q := r.URL.Query()
		filter := domain.QueryFilter{
			Date:     strings.TrimSpace(q.Get("date")),
			BarberID: strings.TrimSpace(q.Get("barber_id")),
			UserID:   strings.TrimSpace(q.Get("user_id")),
			Status:   strings.TrimSpace(q.Get("status")),
		}

		bookings, err := s.bookings.List(r.Context(), filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// GET /api/v1/bookings/{id} fetches one record;
// POST /api/v1/bookings/{id}/{approve|reject|cancel|unblock} moderates.
func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking")
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		booking, err := s.bookings.Get(r.Context(), parts[0])
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case len(parts) == 2 && r.Method == http.MethodPost:
		s.handleModeration(w, r, parts[0], parts[1])

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleModeration(w http.ResponseWriter, r *http.Request, bookingID, action string) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// The reason body is optional for approve and unblock.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	admin := clientName(r.Context())
	var booking *models.Booking
	var err error

	switch action {
	case "approve":
		booking, err = s.moderation.Approve(r.Context(), bookingID, admin)
	case "reject":
		booking, err = s.moderation.Reject(r.Context(), bookingID, admin, body.Reason)
	case "cancel":
		booking, err = s.moderation.Cancel(r.Context(), bookingID, admin, body.Reason)
	case "unblock":
		booking, err = s.moderation.Unblock(r.Context(), bookingID, admin)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown action %q", action))
		return
	}

	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// POST /api/v1/blocks
func (s *HTTPServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("blocks")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	block, err := s.moderation.Block(r.Context(), body.Date, body.Time, clientName(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// GET /api/v1/watch?date=&barber_id=&user_id= streams booking
// snapshots over SSE: one event on connect, then one per mutation.
func (s *HTTPServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("watch")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	q := r.URL.Query()
	filter := domain.QueryFilter{
		Date:     strings.TrimSpace(q.Get("date")),
		BarberID: strings.TrimSpace(q.Get("barber_id")),
		UserID:   strings.TrimSpace(q.Get("user_id")),
	}

	feed, cancel, err := s.availability.Watch(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-feed:
			if !open {
				return
			}
			data, err := json.Marshal(map[string]any{"bookings": snapshot})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// GET /api/v1/export?start=&end= downloads the schedule as xlsx.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, end, err := exportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	path, err := s.exporter.Export(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func exportRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, models.DefaultExportRangeDays-1)

	var err error
	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		if start, err = time.ParseInLocation(models.DateLayout, raw, time.Local); err != nil {
			return start, end, fmt.Errorf("invalid start date %q", raw)
		}
		end = start.AddDate(0, 0, models.DefaultExportRangeDays-1)
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		if end, err = time.ParseInLocation(models.DateLayout, raw, time.Local); err != nil {
			return start, end, fmt.Errorf("invalid end date %q", raw)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end date before start date")
	}
	return start, end, nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
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

// Flush keeps SSE working behind the logging middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
