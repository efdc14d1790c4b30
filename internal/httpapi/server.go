package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"streamd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Infer(ctx context.Context, req types.InferRequest, w io.Writer, flush func()) error
	Switch(ctx context.Context, modelID string) (string, error)
	Unload(ctx context.Context, modelID string) error
	StopSession(modelID string) (types.SessionResponse, error)
	ResetSession(ctx context.Context, modelID string) (types.SessionResponse, error)
	SaveSession(ctx context.Context, modelID, key string) (types.SessionResponse, error)
	LoadSession(ctx context.Context, modelID, key string) (types.SessionResponse, error)
}

type api struct{ svc Service }

func NewMux(svc Service) http.Handler {
	a := &api{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if opts.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORS.Origins,
			AllowedMethods: opts.CORS.Methods,
			AllowedHeaders: opts.CORS.Headers,
			MaxAge:         300,
		}))
	}

	r.Get("/models", a.listModels)
	r.Post("/models/{id}/load", a.loadModel)
	r.Delete("/models/{id}", a.unloadModel)
	r.Get("/status", a.status)
	r.Post("/infer", a.infer)

	r.Route("/sessions/{model}", func(r chi.Router) {
		r.Post("/stop", a.stopSession)
		r.Post("/reset", a.resetSession)
		r.Post("/save", a.saveSession)
		r.Post("/load", a.loadSession)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}
