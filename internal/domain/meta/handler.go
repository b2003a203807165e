package meta

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, repo Repository) {
	r.Get("/version", getVersionHandler(repo))
}

type versionResponse struct {
	Version     int64  `json:"version"`
	LastUpdated string `json:"last_updated"`
}

// getVersionHandler responde el marcador actual. Pensado para el poller del
// display (cada 5-60s): es una sola fila, tiene que ser barato.
func getVersionHandler(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := repo.Version(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(versionResponse{
			Version:     v.Counter,
			LastUpdated: v.LastUpdated.Format(time.RFC3339),
		})
	}
}
