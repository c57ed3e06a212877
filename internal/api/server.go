// Package api serves the well-log processing pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lasqc/internal/cache"
	"github.com/sells-group/lasqc/internal/certify"
	"github.com/sells-group/lasqc/internal/model"
	"github.com/sells-group/lasqc/internal/pipeline"
	"github.com/sells-group/lasqc/internal/store"
)

// Options configures the server.
type Options struct {
	// MaxUploadBytes caps request bodies on upload. Zero disables the cap.
	MaxUploadBytes    int64
	RequestsPerSecond float64
	Burst             int
	CORSOrigins       []string
	// FileTTL is how long an idle uploaded file is kept in memory.
	FileTTL  time.Duration
	MaxFiles int
}

// DefaultOptions returns the server defaults.
func DefaultOptions() Options {
	return Options{
		MaxUploadBytes:    pipeline.DefaultMaxFileSize,
		RequestsPerSecond: 5,
		Burst:             10,
		CORSOrigins:       []string{"*"},
		FileTTL:           time.Hour,
		MaxFiles:          1000,
	}
}

// Server holds uploaded files in memory and exposes the processing
// operations on them.
type Server struct {
	pipe     *pipeline.Pipeline
	issuer   *certify.Issuer
	store    store.Store
	opts     Options
	files    *cache.TTL[string, *model.File]
	certs    *cache.TTL[string, *model.Certificate]
	limiters *cache.TTL[string, *rate.Limiter]
	newID    func() string
}

// New creates a Server. st may be nil, in which case certificates are only
// kept in memory.
func New(pipe *pipeline.Pipeline, issuer *certify.Issuer, st store.Store, opts Options) *Server {
	if opts.FileTTL <= 0 {
		opts.FileTTL = time.Hour
	}
	return &Server{
		pipe:   pipe,
		issuer: issuer,
		store:  st,
		opts:   opts,
		files: cache.New[string, *model.File](opts.FileTTL,
			cache.WithMaxEntries[string, *model.File](opts.MaxFiles),
			cache.WithOnEvict[string, *model.File](func(id string, _ *model.File) {
				zap.L().Debug("api: file evicted", zap.String("file_id", id))
			}),
		),
		certs:    cache.New[string, *model.Certificate](opts.FileTTL, cache.WithMaxEntries[string, *model.Certificate](opts.MaxFiles)),
		limiters: cache.New[string, *rate.Limiter](10 * time.Minute),
		newID:    uuid.NewString,
	}
}

// Janitor sweeps expired files, certificates and idle rate limiters every
// interval until ctx is cancelled.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) {
	go s.files.Run(ctx, interval)
	go s.certs.Run(ctx, interval)
	go s.limiters.Run(ctx, interval)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Post("/files", s.handleUpload)
		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetFile)
			r.Post("/process", s.handleProcess)
			r.Post("/denoise", s.handleOperation(decodeDenoise))
			r.Post("/despike", s.handleOperation(decodeDespike))
			r.Post("/baseline", s.handleOperation(decodeBaseline))
			r.Post("/fill-gaps", s.handleOperation(decodeFillGaps))
			r.Post("/reset", s.handleReset)
			r.Get("/quality", s.handleQuality)
			r.Post("/certify", s.handleCertify)
			r.Get("/export", s.handleExport)
		})
		r.Get("/certificates/{id}", s.handleGetCertificate)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
