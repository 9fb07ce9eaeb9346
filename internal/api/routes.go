package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/blagoySimandov/rowenrich/internal/auth"
)

func SetupRoutes(enrHandler *EnrichHandler, jwtVerifier *auth.JWTVerifier, allowedOrigins []string) http.Handler {
	enrHandler.authenticated = jwtVerifier != nil

	r := mux.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/healthz", enrHandler.Health).Methods("GET")

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(auth.Middleware(jwtVerifier))

	v1.HandleFunc("/sources/preview", enrHandler.PreviewSource).Methods("POST")
	v1.HandleFunc("/sheets/connect", enrHandler.ConnectSheet).Methods("POST")
	v1.HandleFunc("/process", enrHandler.Process).Methods("POST")
	v1.HandleFunc("/runs", enrHandler.ListRuns).Methods("GET")
	v1.HandleFunc("/runs/{runID}/progress", enrHandler.GetRunProgress).Methods("GET")
	v1.HandleFunc("/runs/{runID}/cancel", enrHandler.CancelRun).Methods("POST")
	v1.HandleFunc("/runs/{runID}/results", enrHandler.GetRunResults).Methods("GET")
	v1.HandleFunc("/runs/{runID}/results.csv", enrHandler.DownloadRunResults).Methods("GET")
	v1.HandleFunc("/runs/{runID}/export", enrHandler.ExportRun).Methods("POST")

	return CORSMiddleware(allowedOrigins).Handler(r)
}
