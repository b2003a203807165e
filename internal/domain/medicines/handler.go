package medicines

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/medicines", listMedicinesHandler(svc))
	r.Post("/medicines", createMedicineHandler(svc))
	r.Get("/medicines/low-stock", lowStockHandler(svc))
	r.Get("/medicines/{medicineID}", getMedicineHandler(svc))
	r.Put("/medicines/{medicineID}", updateMedicineHandler(svc))
	r.Delete("/medicines/{medicineID}", deleteMedicineHandler(svc))
}

type medicineRequest struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Dosage            string   `json:"dosage"`
	TimeWindow        string   `json:"time_window"`
	WindowStart       string   `json:"window_start"`
	WindowEnd         string   `json:"window_end"`
	Days              []string `json:"days"`
	WithFood          bool     `json:"with_food"`
	Notes             string   `json:"notes"`
	PillsRemaining    int      `json:"pills_remaining"`
	PillsPerDose      int      `json:"pills_per_dose"`
	LowStockThreshold int      `json:"low_stock_threshold"`
	Active            *bool    `json:"active"` // omitido = true
}

type medicineResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Dosage            string    `json:"dosage"`
	TimeWindow        string    `json:"time_window"`
	WindowStart       string    `json:"window_start"`
	WindowEnd         string    `json:"window_end"`
	Days              []string  `json:"days"`
	WithFood          bool      `json:"with_food"`
	Notes             string    `json:"notes,omitempty"`
	PillsRemaining    int       `json:"pills_remaining"`
	PillsPerDose      int       `json:"pills_per_dose"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type lowStockResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Dosage            string  `json:"dosage"`
	PillsRemaining    int     `json:"pills_remaining"`
	PillsPerDose      int     `json:"pills_per_dose"`
	LowStockThreshold int     `json:"low_stock_threshold"`
	DaysRemaining     float64 `json:"days_remaining"`
}

func (in medicineRequest) toInput() Input {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return Input{
		ID:                in.ID,
		Name:              in.Name,
		Dosage:            in.Dosage,
		TimeWindow:        in.TimeWindow,
		WindowStart:       in.WindowStart,
		WindowEnd:         in.WindowEnd,
		Days:              in.Days,
		WithFood:          in.WithFood,
		Notes:             in.Notes,
		PillsRemaining:    in.PillsRemaining,
		PillsPerDose:      in.PillsPerDose,
		LowStockThreshold: in.LowStockThreshold,
		Active:            active,
	}
}

func createMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid json")
			return
		}

		m, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Location", "/medicines/"+m.ID)
		writeJSON(w, http.StatusCreated, toMedicineResponse(m))
	}
}

func listMedicinesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := true
		if v := r.URL.Query().Get("active"); v != "" {
			activeOnly = strings.EqualFold(v, "true")
		}

		items, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to list medicines")
			return
		}

		out := make([]medicineResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicineResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicineID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func updateMedicineHandler(svc *Service) http.HandlerFunc {
	// PUT = reemplazo completo; el id del path manda sobre el del body.
	return func(w http.ResponseWriter, r *http.Request) {
		var req medicineRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid json")
			return
		}

		m, err := svc.Update(r.Context(), chi.URLParam(r, "medicineID"), req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicineResponse(m))
	}
}

func deleteMedicineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "medicineID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func lowStockHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListLowStock(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to list low stock medicines")
			return
		}

		out := make([]lowStockResponse, 0, len(items))
		for _, m := range items {
			out = append(out, lowStockResponse{
				ID:                m.ID,
				Name:              m.Name,
				Dosage:            m.Dosage,
				PillsRemaining:    m.PillsRemaining,
				PillsPerDose:      m.PillsPerDose,
				LowStockThreshold: m.LowStockThreshold,
				DaysRemaining:     m.DaysRemaining(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toMedicineResponse(m Medicine) medicineResponse {
	// La respuesta siempre lleva los límites efectivos de la franja,
	// resueltos contra los defaults si no hubo override.
	start, end := m.EffectiveWindow()

	days := make([]string, 0, len(m.Days))
	for _, d := range m.Days {
		days = append(days, string(d))
	}

	return medicineResponse{
		ID:                m.ID,
		Name:              m.Name,
		Dosage:            m.Dosage,
		TimeWindow:        string(m.TimeWindow),
		WindowStart:       start,
		WindowEnd:         end,
		Days:              days,
		WithFood:          m.WithFood,
		Notes:             m.Notes,
		PillsRemaining:    m.PillsRemaining,
		PillsPerDose:      m.PillsPerDose,
		LowStockThreshold: m.LowStockThreshold,
		Active:            m.Active,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "medicine not found")
	case errors.Is(err, ErrDuplicateID):
		writeError(w, http.StatusConflict, "conflict", "medicine already exists")
	default:
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
	}
}

// writeJSON/writeError están duplicados a propósito en los handlers de cada
// módulo (medicines/tracking/adherence) para no crear helpers compartidos
// antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{
		"error": {Code: code, Message: message},
	})
}
