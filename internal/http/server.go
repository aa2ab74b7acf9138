package http

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// DefaultRequestTimeout bounds the backend work of one request.
const DefaultRequestTimeout = 7 * time.Second

// Services are the application services the API exposes.
type Services struct {
	Auth        *services.AuthService
	Commitments *services.CommitmentService
	Expenses    *services.ExpenseService
	Notes       *services.NoteService
	Dashboard   *services.DashboardService
}

// Options configure the server.
type Options struct {
	Addr               string
	UploadDir          string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	Logger             *log.Logger
	// Ready reports whether dependencies can serve traffic; nil means always.
	Ready func(ctx context.Context) error
}

// Server is the finboard API server.
type Server struct {
	http.Server
	svc      Services
	uploads  *Uploader
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger
	timeout  time.Duration
	ready    func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(opts Options, svc Services) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	uploads, err := NewUploader(opts.UploadDir)
	if err != nil {
		return nil, err
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		uploads:  uploads,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		logger:   logger,
		timeout:  timeout,
		ready:    opts.Ready,
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = s.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Route not found").Write(w)
	}))
	r.MethodNotAllowedHandler = s.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	}))

	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.flagSuspicious)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	files := http.StripPrefix(UploadURLPrefix, http.FileServer(uploadFS{http.Dir(s.uploads.Dir())}))
	r.PathPrefix(UploadURLPrefix).Handler(security.StaticAssetMiddleware(86400)(files)).Methods(http.MethodGet, http.MethodHead)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	}))
	admin.Use(s.withTimeout)

	admin.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	admin.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)

	api := admin.NewRoute().Subrouter()
	api.Use(s.requireAuth)

	api.HandleFunc("/commitments", s.handleListCommitments).Methods(http.MethodGet)
	api.HandleFunc("/commitments/view/{id}", s.handleGetCommitment).Methods(http.MethodGet)
	api.HandleFunc("/commitments/store", s.handleCreateCommitment).Methods(http.MethodPost)
	api.HandleFunc("/commitments/update/{id}", s.handleUpdateCommitment).Methods(http.MethodPut)
	api.HandleFunc("/commitments/delete/{id}", s.handleDeleteCommitment).Methods(http.MethodDelete)

	api.HandleFunc("/commitments/history/store", s.handleAddPayment).Methods(http.MethodPost)
	api.HandleFunc("/commitments/history/edit/{id}", s.handleGetPayment).Methods(http.MethodGet)
	api.HandleFunc("/commitments/history/update/{id}", s.handleUpdatePayment).Methods(http.MethodPut)
	api.HandleFunc("/commitments/history/delete/{id}", s.handleDeletePayment).Methods(http.MethodDelete)
	api.HandleFunc("/commitments/history/{commitmentId}", s.handleListHistory).Methods(http.MethodGet)

	s.expenseRoutes(api.PathPrefix("/expenses").Subrouter(), expenseKindAll)
	s.expenseRoutes(api.PathPrefix("/house-savings").Subrouter(), expenseKindSavings)

	api.HandleFunc("/notes", s.handleListNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes/store", s.handleCreateNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/update/{id}", s.handleUpdateNote).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/notes/delete/{id}", s.handleDeleteNote).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/index", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/upcoming-payments", s.handleUpcomingPayments).Methods(http.MethodGet)

	return r
}

// wrap applies the tracing and header middleware to handlers mux calls
// outside of a matched route.
func (s *Server) wrap(h http.Handler) http.Handler {
	return s.tracer.Middleware(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h))
}

// Shutdown gracefully stops the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth accepts "Authorization: Bearer <jwt>" and stores the token
// subject for the handlers.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			ErrorResponse(http.StatusUnauthorized, "Authentication required").Write(w)
			return
		}
		subject, err := s.svc.Auth.ParseToken(strings.TrimSpace(token))
		if err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Token rejected",
				log.FieldPath, r.URL.Path, log.FieldError, err)
			ErrorResponse(http.StatusUnauthorized, "Invalid or expired token").Write(w)
			return
		}
		ctx := withSubject(r.Context(), subject)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldOwnerID, subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// fail writes the response for err and logs unexpected failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.body.Code >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, op,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
	}
	resp.Write(w)
}

type healthResponse struct {
	Status    string                    `json:"status"`
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(healthResponse{
		Status:    "ok",
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Message("ready").Write(w)
}

// uploadFS hides directory listings.
type uploadFS struct {
	fs http.FileSystem
}

func (u uploadFS) Open(name string) (http.File, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
