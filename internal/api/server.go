// Package api serves stored index runs over a read-only HTTP API.
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"equal-weight-index/internal/domain"
	"equal-weight-index/internal/observability"
	"equal-weight-index/internal/storage"
)

// Options configures the router.
type Options struct {
	RunStore   storage.IndexRunStore
	LevelStore storage.IndexLevelStore // optional; enables /levels
	Logger     *log.Logger             // nil disables request logging
	RPS        float64                 // request rate limit; <= 0 disables it
	Burst      int                     // limiter burst; 0 means 2*RPS
}

type server struct {
	runs   storage.IndexRunStore
	levels storage.IndexLevelStore
	logger *log.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	s := &server{
		runs:   opts.RunStore,
		levels: opts.LevelStore,
		logger: opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: opts.Logger, NoColor: true}))
	}
	r.Use(middleware.Recoverer)
	r.Use(recordMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})
	r.Handle("/metrics", observability.Handler())

	r.Route("/api", func(r chi.Router) {
		if opts.RPS > 0 {
			burst := opts.Burst
			if burst <= 0 {
				burst = int(2*opts.RPS) + 1
			}
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RPS), burst)))
		}
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/runs", s.listRuns)
		r.Route("/runs/{id}", func(r chi.Router) {
			r.Get("/", s.getRun)
			r.Get("/daily", s.getDaily)
			r.Get("/summary", s.getSummary)
			r.Get("/levels", s.getLevels)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})

	return r
}

func (s *server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = newRunResponse(run)
	}
	render.JSON(w, r, out)
}

func (s *server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, newRunResponse(run))
}

func (s *server) getDaily(w http.ResponseWriter, r *http.Request) {
	daily, err := s.runs.GetDailyRecords(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// ?limit=N keeps the last N days.
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if len(daily) > n {
			daily = daily[len(daily)-n:]
		}
	}

	out := make([]dailyResponse, len(daily))
	for i, d := range daily {
		out[i] = newDailyResponse(d)
	}
	render.JSON(w, r, out)
}

func (s *server) getSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runs.GetSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, newSummaryResponse(summary))
}

func (s *server) getLevels(w http.ResponseWriter, r *http.Request) {
	if s.levels == nil {
		writeError(w, r, http.StatusNotFound, "level store not configured")
		return
	}
	points, err := s.levels.GetByRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(points) == 0 {
		writeError(w, r, http.StatusNotFound, "run not found")
		return
	}
	out := make([]levelResponse, len(points))
	for i, p := range points {
		out[i] = levelResponse{
			Date:                p.Date.Format(domain.DateLayout),
			Level:               p.Level,
			DailyReturnPct:      p.DailyReturnPct,
			CumulativeReturnPct: p.CumulativeReturnPct,
			ConstituentCount:    p.ConstituentCount,
			IsRebalanceDay:      p.IsRebalanceDay,
		}
	}
	render.JSON(w, r, out)
}

// fail maps storage errors to HTTP status codes.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, "run not found")
		return
	}
	if s.logger != nil {
		s.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg, Status: status})
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recordMetrics counts requests by route pattern so run IDs don't
// become label values.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(status))
	})
}
