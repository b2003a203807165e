package adherence

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/tracking/today", todayHandler(svc))
	r.Get("/tracking/adherence-detailed", detailedHandler(svc))
}

type todayResponse struct {
	Date             string  `json:"date"`
	TotalMedicines   int     `json:"total_medicines"`
	MedicinesTaken   int     `json:"medicines_taken"`
	MedicinesSkipped int     `json:"medicines_skipped"`
	MedicinesPending int     `json:"medicines_pending"`
	AdherenceRate    float64 `json:"adherence_rate"`
	LowStockCount    int     `json:"low_stock_count"`
}

type medicineStatsResponse struct {
	MedicineID    string  `json:"medicine_id"`
	Name          string  `json:"name"`
	Total         int     `json:"total"`
	Taken         int     `json:"taken"`
	Skipped       int     `json:"skipped"`
	Missed        int     `json:"missed"`
	AdherenceRate float64 `json:"adherence_rate"`
}

type detailedResponse struct {
	Total         int                     `json:"total"`
	Taken         int                     `json:"taken"`
	Skipped       int                     `json:"skipped"`
	Missed        int                     `json:"missed"`
	AdherenceRate float64                 `json:"adherence_rate"`
	SkipRate      float64                 `json:"skip_rate"`
	ByMedicine    []medicineStatsResponse `json:"by_medicine"`
}

func todayHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date != "" && !validDate(date) {
			writeError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
			return
		}

		stats, err := svc.Today(r.Context(), date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, todayResponse{
			Date:             stats.Date,
			TotalMedicines:   stats.TotalScheduled,
			MedicinesTaken:   stats.Taken,
			MedicinesSkipped: stats.Skipped,
			MedicinesPending: stats.Pending,
			AdherenceRate:    stats.AdherenceRate,
			LowStockCount:    stats.LowStockCount,
		})
	}
}

func detailedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, to := q.Get("start_date"), q.Get("end_date")
		if from != "" && !validDate(from) {
			writeError(w, http.StatusBadRequest, "validation_error", "start_date must be YYYY-MM-DD")
			return
		}
		if to != "" && !validDate(to) {
			writeError(w, http.StatusBadRequest, "validation_error", "end_date must be YYYY-MM-DD")
			return
		}

		stats, err := svc.Detailed(r.Context(), from, to)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		byMed := make([]medicineStatsResponse, 0, len(stats.ByMedicine))
		for _, ms := range stats.ByMedicine {
			byMed = append(byMed, medicineStatsResponse{
				MedicineID:    ms.MedicineID,
				Name:          ms.Name,
				Total:         ms.Total,
				Taken:         ms.Taken,
				Skipped:       ms.Skipped,
				Missed:        ms.Missed,
				AdherenceRate: ms.AdherenceRate,
			})
		}

		writeJSON(w, http.StatusOK, detailedResponse{
			Total:         stats.Total,
			Taken:         stats.Taken,
			Skipped:       stats.Skipped,
			Missed:        stats.Missed,
			AdherenceRate: stats.AdherenceRate,
			SkipRate:      stats.SkipRate,
			ByMedicine:    byMed,
		})
	}
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
}

// Duplicados a propósito por módulo; ver nota en medicines/handler.go.
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
