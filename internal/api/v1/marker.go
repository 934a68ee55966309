package api

import (
	"net/http"

	"github.com/hashicorp-forge/distributor/internal/server"

	"github.com/hashicorp-forge/distributor/pkg/remote"
)

// MarkerMiddleware sets the protocol marker header on every response so
// peers probing this site detect full-connection support.
func MarkerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(remote.HeaderMarker, "yes")
		next.ServeHTTP(w, r)
	})
}

// HealthHandler reports liveness and, when a database is configured, that it
// answers pings.
func HealthHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if srv.DB != nil {
			sqlDB, err := srv.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(r.Context())
			}
			if err != nil {
				srv.Logger.Error("health: database unavailable", "error", err)
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
