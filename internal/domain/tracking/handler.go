package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/schedule"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, meds *medicines.Service) {
	r.Get("/medicines/pending", pendingHandler(svc, meds))
	r.Post("/medicines/{medicineID}/take", takeByPathHandler(svc))

	r.Get("/tracking", historyHandler(svc))
	r.Post("/tracking/take", takeHandler(svc))
	r.Post("/tracking/skip", skipHandler(svc))
	r.Post("/tracking/batch-take", batchTakeHandler(svc))
	r.Get("/tracking/skip-history", skipHistoryHandler(svc))
}

type takeRequest struct {
	MedicineID string `json:"medicine_id"`
	TimeWindow string `json:"time_window"`
	Timestamp  string `json:"timestamp"` // RFC3339, opcional
	Date       string `json:"date"`      // YYYY-MM-DD, opcional
	Override   bool   `json:"override"`  // pisa un skip existente
}

type takeResponse struct {
	MedicineID     string `json:"medicine_id"`
	MedicineName   string `json:"medicine_name"`
	PillsRemaining int    `json:"pills_remaining"`
	LowStock       bool   `json:"low_stock"`
	TakenAt        string `json:"taken_at"`
	AlreadyTaken   bool   `json:"already_taken,omitempty"`
}

type skipRequest struct {
	MedicineID string `json:"medicine_id"`
	TimeWindow string `json:"time_window"`
	Reason     string `json:"reason"`
	Notes      string `json:"notes"`
	SkipDate   string `json:"skip_date"` // YYYY-MM-DD, opcional
}

type skipResponse struct {
	Success       bool   `json:"success"`
	MedicineID    string `json:"medicine_id"`
	MedicineName  string `json:"medicine_name"`
	TimeWindow    string `json:"time_window"`
	SkipDate      string `json:"skip_date"`
	SkipTimestamp string `json:"skip_timestamp"`
	SkipReason    string `json:"skip_reason"`
}

type batchTakeRequest struct {
	MedicineIDs []string `json:"medicine_ids"`
	Timestamp   string   `json:"timestamp"`
}

type batchMarkedItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PillsRemaining int    `json:"pills_remaining"`
	LowStock       bool   `json:"low_stock"`
}

type batchErrorItem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type batchTakeResponse struct {
	Marked    []batchMarkedItem `json:"marked"`
	Errors    []batchErrorItem  `json:"errors,omitempty"`
	Timestamp string            `json:"timestamp"`
}

type recordResponse struct {
	MedicineID    string `json:"medicine_id"`
	MedicineName  string `json:"medicine_name,omitempty"`
	Dosage        string `json:"dosage,omitempty"`
	Date          string `json:"date"`
	TimeWindow    string `json:"time_window"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp,omitempty"`
	PillsTaken    int    `json:"pills_taken,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
	SkipTimestamp string `json:"skip_timestamp,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type pendingEntryResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Dosage         string   `json:"dosage"`
	TimeWindow     string   `json:"time_window"`
	WindowStart    string   `json:"window_start"`
	WindowEnd      string   `json:"window_end"`
	Days           []string `json:"days"`
	WithFood       bool     `json:"with_food"`
	PillsRemaining int      `json:"pills_remaining"`
	PillsPerDose   int      `json:"pills_per_dose"`
	LowStock       bool     `json:"low_stock"`
}

func takeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req takeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid json")
			return
		}
		doTake(w, r, svc, req)
	}
}

// takeByPathHandler es la variante de conveniencia que usa el poller del
// display: medicina por path, resto opcional en el body.
func takeByPathHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req takeRequest
		if r.Body != nil {
			// Body vacío es válido acá.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		req.MedicineID = chi.URLParam(r, "medicineID")
		doTake(w, r, svc, req)
	}
}

func doTake(w http.ResponseWriter, r *http.Request, svc *Service, req takeRequest) {
	var takenAt *time.Time
	if req.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "timestamp must be RFC3339")
			return
		}
		takenAt = &t
	}
	if req.Date != "" && !validDate(req.Date) {
		writeError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
		return
	}

	out, err := svc.MarkTaken(r.Context(), TakeInput{
		MedicineID: req.MedicineID,
		TimeWindow: req.TimeWindow,
		Date:       req.Date,
		TakenAt:    takenAt,
		Override:   req.Override,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, takeResponse{
		MedicineID:     out.MedicineID,
		MedicineName:   out.MedicineName,
		PillsRemaining: out.PillsRemaining,
		LowStock:       out.LowStock,
		TakenAt:        out.TakenAt.Format(time.RFC3339),
		AlreadyTaken:   out.AlreadyTaken,
	})
}

func skipHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req skipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid json")
			return
		}
		if req.SkipDate != "" && !validDate(req.SkipDate) {
			writeError(w, http.StatusBadRequest, "validation_error", "skip_date must be YYYY-MM-DD")
			return
		}

		out, err := svc.MarkSkipped(r.Context(), SkipInput{
			MedicineID: req.MedicineID,
			TimeWindow: req.TimeWindow,
			Date:       req.SkipDate,
			Reason:     req.Reason,
			Notes:      req.Notes,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, skipResponse{
			Success:       true,
			MedicineID:    out.MedicineID,
			MedicineName:  out.MedicineName,
			TimeWindow:    string(out.TimeWindow),
			SkipDate:      out.Date,
			SkipTimestamp: out.SkippedAt.Format(time.RFC3339),
			SkipReason:    out.Reason,
		})
	}
}

func batchTakeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchTakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid json")
			return
		}
		if len(req.MedicineIDs) == 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "medicine_ids must be a non-empty list")
			return
		}

		var takenAt *time.Time
		if req.Timestamp != "" {
			t, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "timestamp must be RFC3339")
				return
			}
			takenAt = &t
		}

		items := svc.BatchMarkTaken(r.Context(), req.MedicineIDs, takenAt)

		resp := batchTakeResponse{
			Marked:    make([]batchMarkedItem, 0, len(items)),
			Timestamp: time.Now().Format(time.RFC3339),
		}
		for _, it := range items {
			if it.Err != nil {
				resp.Errors = append(resp.Errors, batchErrorItem{ID: it.MedicineID, Error: it.Err.Error()})
				continue
			}
			resp.Marked = append(resp.Marked, batchMarkedItem{
				ID:             it.MedicineID,
				Name:           it.MedicineName,
				PillsRemaining: it.PillsRemaining,
				LowStock:       it.LowStock,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func historyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := filterFromQuery(w, r)
		if !ok {
			return
		}

		records, err := svc.History(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to list tracking history")
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponses(records))
	}
}

func skipHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := filterFromQuery(w, r)
		if !ok {
			return
		}

		records, err := svc.SkipHistory(r.Context(), f.MedicineID, f.From, f.To)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to list skip history")
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponses(records))
	}
}

func pendingHandler(svc *Service, meds *medicines.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		now := time.Now()
		if dateStr, timeStr := q.Get("date"), q.Get("time"); dateStr != "" && timeStr != "" {
			t, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, now.Location())
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "date/time must be YYYY-MM-DD and HH:MM")
				return
			}
			now = t
		}

		buffer := schedule.DefaultBufferMinutes
		if v := q.Get("reminder_window"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 1440 {
				writeError(w, http.StatusBadRequest, "validation_error", "reminder_window must be 1..1440")
				return
			}
			buffer = n
		}

		items, err := meds.List(r.Context(), true)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to list medicines")
			return
		}

		resolved, err := svc.ResolvedOn(r.Context(), now.Format("2006-01-02"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "storage_error", "failed to read tracking ledger")
			return
		}

		pending := schedule.Pending(items, resolved, now, buffer)

		out := make([]pendingEntryResponse, 0, len(pending))
		for _, e := range pending {
			start, end := e.Medicine.EffectiveWindow()
			days := make([]string, 0, len(e.Medicine.Days))
			for _, d := range e.Medicine.Days {
				days = append(days, string(d))
			}
			out = append(out, pendingEntryResponse{
				ID:             e.Medicine.ID,
				Name:           e.Medicine.Name,
				Dosage:         e.Medicine.Dosage,
				TimeWindow:     string(e.Medicine.TimeWindow),
				WindowStart:    start,
				WindowEnd:      end,
				Days:           days,
				WithFood:       e.Medicine.WithFood,
				PillsRemaining: e.Medicine.PillsRemaining,
				PillsPerDose:   e.Medicine.PillsPerDose,
				LowStock:       e.LowStock,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func filterFromQuery(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	f := Filter{
		MedicineID: q.Get("medicine_id"),
		From:       q.Get("start_date"),
		To:         q.Get("end_date"),
	}
	if f.From != "" && !validDate(f.From) {
		writeError(w, http.StatusBadRequest, "validation_error", "start_date must be YYYY-MM-DD")
		return Filter{}, false
	}
	if f.To != "" && !validDate(f.To) {
		writeError(w, http.StatusBadRequest, "validation_error", "end_date must be YYYY-MM-DD")
		return Filter{}, false
	}
	return f, true
}

func toRecordResponses(records []Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		item := recordResponse{
			MedicineID:   rec.MedicineID,
			MedicineName: rec.MedicineName,
			Dosage:       rec.Dosage,
			Date:         rec.Date,
			TimeWindow:   string(rec.TimeWindow),
			PillsTaken:   rec.PillsTaken,
			SkipReason:   rec.SkipReason,
			Notes:        rec.SkipNotes,
		}
		switch {
		case rec.Taken:
			item.Status = "taken"
		case rec.Skipped:
			item.Status = "skipped"
		}
		if rec.TakenAt != nil {
			item.Timestamp = rec.TakenAt.Format(time.RFC3339)
		}
		if rec.SkippedAt != nil {
			item.SkipTimestamp = rec.SkippedAt.Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return out
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, medicines.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "medicine not found")
	case errors.Is(err, ErrSkippedConflict):
		writeError(w, http.StatusConflict, "conflict", "dose already skipped; retry with override to replace the skip")
	case errors.Is(err, ErrTakenConflict):
		writeError(w, http.StatusConflict, "conflict", "dose already taken")
	default:
		writeError(w, http.StatusInternalServerError, "storage_error", "internal error")
	}
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
