// Package server exposes free-slot computation and saved plans over a
// small JSON API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/christopherklint97/studyr/internal/export"
	"github.com/christopherklint97/studyr/internal/planning"
	"github.com/christopherklint97/studyr/internal/setup"
	"github.com/christopherklint97/studyr/internal/store"
)

const maxBodyBytes = 1 << 20

// PlanStore is the read side of the plan store.
type PlanStore interface {
	LatestPlan() (*store.Plan, error)
	PlanByID(id string) (*store.Plan, error)
}

type Server struct {
	router   chi.Router
	db       PlanStore
	defaults setup.Defaults
	locale   planning.Locale
	loc      *time.Location
	calc     *planning.Calculator
	now      func() time.Time
	logger   *slog.Logger
}

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	Defaults setup.Defaults
	Locale   planning.Locale
	Location *time.Location
	Logger   *slog.Logger
}

func New(db PlanStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	locale := opts.Locale
	if locale == "" {
		locale = planning.LocaleGerman
	}

	s := &Server{
		db:       db,
		defaults: opts.Defaults,
		locale:   locale,
		loc:      loc,
		calc:     planning.NewCalculator(logger),
		now:      time.Now,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/free-slots", s.handleFreeSlots)
		r.Get("/plans/latest", s.handleLatestPlan)
		r.Get("/plans/{id}", s.handlePlan)
		r.Get("/plans/{id}/ics", s.handlePlanICS)
	})
	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type windowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type freeSlotsResponse struct {
	Window        windowJSON        `json:"window"`
	Slots         []planning.Record `json:"slots"`
	TotalHours    float64           `json:"total_hours"`
	AvailableDays int               `json:"available_days"`
	Skipped       []string          `json:"skipped,omitempty"`
}

type problemsResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems"`
}

// handleFreeSlots accepts a setup document and returns its free slots.
// The optional ref query parameter (YYYY-MM-DD) replaces today as the
// reference date.
func (s *Server) handleFreeSlots(w http.ResponseWriter, r *http.Request) {
	var in setup.Setup
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	ref := s.now().In(s.loc)
	if v := r.URL.Query().Get("ref"); v != "" {
		t, err := time.Parse(planning.DateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_ref")
			return
		}
		ref = t
	}

	if problems := in.Validate(ref); len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, problemsResponse{Error: "validation_failed", Problems: problems})
		return
	}

	res, slots, err := in.FreeSlots(ref, s.defaults, s.calc)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, problemsResponse{Error: "invalid_window", Problems: []string{err.Error()}})
		return
	}

	records := planning.Records(slots, s.locale)
	if records == nil {
		records = []planning.Record{}
	}
	writeJSON(w, http.StatusOK, freeSlotsResponse{
		Window: windowJSON{
			Start: res.Window.Start.Format(planning.DateLayout),
			End:   res.Window.End.Format(planning.DateLayout),
		},
		Slots:         records,
		TotalHours:    planning.TotalHours(slots),
		AvailableDays: planning.AvailableDays(slots),
		Skipped:       res.Skipped,
	})
}

type sessionJSON struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Module      string    `json:"module"`
	Topic       string    `json:"topic"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	Notified    bool      `json:"notified"`
}

type planJSON struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Window        windowJSON        `json:"window"`
	Provider      string            `json:"provider"`
	Model         string            `json:"model,omitempty"`
	PromptVersion string            `json:"prompt_version,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	FreeSlots     []planning.Record `json:"free_slots"`
	Sessions      []sessionJSON     `json:"sessions"`
}

func toPlanJSON(p *store.Plan) planJSON {
	out := planJSON{
		ID:        p.ID,
		CreatedAt: p.CreatedAt,
		Window: windowJSON{
			Start: p.Start.Format(planning.DateLayout),
			End:   p.End.Format(planning.DateLayout),
		},
		Provider:      p.Provider,
		Model:         p.Model,
		PromptVersion: p.PromptVersion,
		Notes:         p.Notes,
		FreeSlots:     p.FreeSlots,
		Sessions:      make([]sessionJSON, 0, len(p.Sessions)),
	}
	if out.FreeSlots == nil {
		out.FreeSlots = []planning.Record{}
	}
	for _, s := range p.Sessions {
		out.Sessions = append(out.Sessions, sessionJSON{
			ID:          s.ID,
			Date:        s.Date,
			Start:       s.Start,
			End:         s.End,
			Module:      s.Module,
			Topic:       s.Topic,
			Description: s.Description,
			StartsAt:    s.StartsAt,
			Notified:    s.Notified,
		})
	}
	return out
}

func (s *Server) handleLatestPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.db.LatestPlan()
	if err != nil {
		s.logger.Error("loading latest plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no_plan")
		return
	}
	writeJSON(w, http.StatusOK, toPlanJSON(p))
}

func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (*store.Plan, bool) {
	p, err := s.db.PlanByID(chi.URLParam(r, "id"))
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "plan_not_found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("loading plan", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return nil, false
	}
	return p, true
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.loadPlan(w, r); ok {
		writeJSON(w, http.StatusOK, toPlanJSON(p))
	}
}

func (s *Server) handlePlanICS(w http.ResponseWriter, r *http.Request) {
	p, ok := s.loadPlan(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := export.ICS(&buf, store.AISessions(p.Sessions), s.loc); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			writeError(w, http.StatusNotFound, "no_sessions")
			return
		}
		s.logger.Error("exporting plan", "plan", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="studyr-%s.ics"`, p.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
