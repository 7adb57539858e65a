package rest

import (
	"net/http"
	"polcomp/internal/service"
	"polcomp/internal/transport/rest/handler"
	"polcomp/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	SubmissionService *service.SubmissionService
	DatasetService    *service.DatasetService
	MatchService      *service.MatchService
	SubmitLimiter     *middleware.RateLimiter
	Gatherer          prometheus.Gatherer
	CORSOrigins       string
	Logger            *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(c.SubmissionService, c.MatchService, c.Logger)
	dataHandler := handler.NewDataHandler(c.DatasetService, c.SubmissionService, c.MatchService, c.Logger)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	if c.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(c.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/questions", quizHandler.Questions).Methods("GET", "OPTIONS")
	v1.HandleFunc("/scores", quizHandler.Score).Methods("POST", "OPTIONS")
	v1.HandleFunc("/results/{id}", quizHandler.GetResult).Methods("GET", "OPTIONS")
	v1.HandleFunc("/matches", quizHandler.Matches).Methods("POST", "OPTIONS")

	v1.HandleFunc("/data/datasets", dataHandler.Datasets).Methods("POST", "OPTIONS")
	v1.HandleFunc("/data/counts", dataHandler.Counts).Methods("POST", "OPTIONS")
	v1.HandleFunc("/data/summary", dataHandler.Summary).Methods("GET", "OPTIONS")
	v1.HandleFunc("/identities/averages", dataHandler.IdentityAverages).Methods("GET", "OPTIONS")

	// Submission is the only write and is rate limited per client
	var submit http.Handler = http.HandlerFunc(quizHandler.Submit)
	if c.SubmitLimiter != nil {
		submit = c.SubmitLimiter.Limit(submit)
	}
	v1.Handle("/results", submit).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
