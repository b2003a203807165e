package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "medicine-tracker/internal/adapters/storage/memory"
	pg "medicine-tracker/internal/adapters/storage/postgres"
	lite "medicine-tracker/internal/adapters/storage/sqlite"
	"medicine-tracker/internal/domain/adherence"
	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/meta"
	"medicine-tracker/internal/domain/tracking"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "medicine-tracker/docs"
)

type Options struct {
	Log logger.Logger // puede ser nil

	// Opcional: DB explícita (Postgres). Si no viene, se resuelve por env:
	// DB_DSN => Postgres, MEDICINE_DB => sqlite, nada => in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	log := opts.Log
	if log == nil {
		log = logger.NewFromEnv()
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))

	// El dashboard corre en el browser del kiosko, origen distinto al de la API.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		medsRepo     medicines.Repository
		trackingRepo tracking.Repository
		metaRepo     meta.Repository
	)

	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err != nil {
				log.Error("postgres open failed, falling back", map[string]any{"error": err.Error()})
			} else {
				db = opened
			}
		}
	}

	switch {
	case db != nil:
		medsRepo = pg.NewMedicinesRepo(db)
		trackingRepo = pg.NewTrackingRepo(db)
		metaRepo = pg.NewMetaRepo(db)

	case os.Getenv("MEDICINE_DB") != "":
		path := os.Getenv("MEDICINE_DB")
		sdb, err := lite.Open(path)
		if err != nil {
			log.Error("sqlite open failed, using in-memory store", map[string]any{
				"path":  path,
				"error": err.Error(),
			})
			store := mem.NewStore()
			medsRepo = mem.NewMedicinesRepo(store)
			trackingRepo = mem.NewTrackingRepo(store)
			metaRepo = mem.NewMetaRepo(store)
		} else {
			medsRepo = lite.NewMedicinesRepo(sdb)
			trackingRepo = lite.NewTrackingRepo(sdb)
			metaRepo = lite.NewMetaRepo(sdb)
		}

	default:
		store := mem.NewStore()
		medsRepo = mem.NewMedicinesRepo(store)
		trackingRepo = mem.NewTrackingRepo(store)
		metaRepo = mem.NewMetaRepo(store)
	}

	// Services por módulo
	medsSvc := medicines.NewService(medsRepo)
	trackingSvc := tracking.NewService(trackingRepo, medsRepo)
	adherenceSvc := adherence.NewService(medsRepo, trackingRepo)

	// Rutas por módulo
	medicines.RegisterRoutes(r, medsSvc)
	tracking.RegisterRoutes(r, trackingSvc, medsSvc)
	adherence.RegisterRoutes(r, adherenceSvc)
	meta.RegisterRoutes(r, metaRepo)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
