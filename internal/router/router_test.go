package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"medicine-tracker/internal/router"
)

// 2026-03-02 es lunes; las medicinas del test están programadas todos los
// días así que la fecha solo tiene que ser estable y pasada.
const testDate = "2026-03-02"

func TestHTTP_EndToEnd_TrackingFlow(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	// 1) Alta de dos medicinas: una de mañana, otra de noche con stock bajo
	morningID := createMedicine(t, ts.URL, map[string]any{
		"name":                "Lisinopril",
		"dosage":              "10mg",
		"time_window":         "morning",
		"days":                []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
		"pills_remaining":     10,
		"pills_per_dose":      1,
		"low_stock_threshold": 3,
	})
	eveningID := createMedicine(t, ts.URL, map[string]any{
		"name":                "Atorvastatin",
		"dosage":              "20mg",
		"time_window":         "evening",
		"days":                []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
		"pills_remaining":     2,
		"pills_per_dose":      1,
		"low_stock_threshold": 3,
	})

	// 2) A las 09:00 solo la de mañana está pendiente
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/pending?date="+testDate+"&time=09:00", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 pending, got %d body=%s", st, string(body))
		}
		ids := pendingIDs(t, body)
		if len(ids) != 1 || ids[0] != morningID {
			t.Fatalf("expected only morning medicine pending, got %v", ids)
		}
	}

	// 3) Tomar la de mañana decrementa stock
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+morningID+"/take", map[string]any{
			"date":      testDate,
			"timestamp": testDate + "T08:30:00Z",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 take, got %d body=%s", st, string(body))
		}
		var resp struct {
			PillsRemaining int  `json:"pills_remaining"`
			AlreadyTaken   bool `json:"already_taken"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.PillsRemaining != 9 || resp.AlreadyTaken {
			t.Fatalf("expected 9 pills and first take, got %+v", resp)
		}
	}

	// 4) Repetir la toma es no-op: mismo stock, already_taken
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+morningID+"/take", map[string]any{
			"date": testDate,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 repeat take, got %d body=%s", st, string(body))
		}
		var resp struct {
			PillsRemaining int  `json:"pills_remaining"`
			AlreadyTaken   bool `json:"already_taken"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.PillsRemaining != 9 || !resp.AlreadyTaken {
			t.Fatalf("expected idempotent take with 9 pills, got %+v", resp)
		}
	}

	// 5) Ya no queda nada pendiente a las 09:00
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/pending?date="+testDate+"&time=09:00", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 pending, got %d body=%s", st, string(body))
		}
		if ids := pendingIDs(t, body); len(ids) != 0 {
			t.Fatalf("expected no pending medicines, got %v", ids)
		}
	}

	// 6) Saltar la de noche
	{
		st, body := doReq(t, ts.URL, "POST", "/tracking/skip", map[string]any{
			"medicine_id": eveningID,
			"reason":      "side_effects",
			"notes":       "nausea",
			"skip_date":   testDate,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 skip, got %d body=%s", st, string(body))
		}
	}

	// 7) Tomar sobre un skip existente exige override
	{
		st, _ := doReq(t, ts.URL, "POST", "/medicines/"+eveningID+"/take", map[string]any{
			"date": testDate,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 take over skip, got %d", st)
		}
	}

	// 8) Stats del día: 1 tomada, 1 salteada, stock bajo de la de noche
	{
		st, body := doReq(t, ts.URL, "GET", "/tracking/today?date="+testDate, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 today, got %d body=%s", st, string(body))
		}
		var resp struct {
			TotalMedicines   int     `json:"total_medicines"`
			MedicinesTaken   int     `json:"medicines_taken"`
			MedicinesSkipped int     `json:"medicines_skipped"`
			MedicinesPending int     `json:"medicines_pending"`
			AdherenceRate    float64 `json:"adherence_rate"`
			LowStockCount    int     `json:"low_stock_count"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.TotalMedicines != 2 || resp.MedicinesTaken != 1 || resp.MedicinesSkipped != 1 || resp.MedicinesPending != 0 {
			t.Fatalf("unexpected today stats: %+v", resp)
		}
		if resp.AdherenceRate != 0.5 {
			t.Fatalf("expected adherence 0.5, got %v", resp.AdherenceRate)
		}
		if resp.LowStockCount != 1 {
			t.Fatalf("expected 1 low stock medicine, got %d", resp.LowStockCount)
		}
	}

	// 9) Adherencia detallada del rango de un día
	{
		st, body := doReq(t, ts.URL, "GET", "/tracking/adherence-detailed?start_date="+testDate+"&end_date="+testDate, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 detailed, got %d body=%s", st, string(body))
		}
		var resp struct {
			Total         int     `json:"total"`
			Taken         int     `json:"taken"`
			Skipped       int     `json:"skipped"`
			Missed        int     `json:"missed"`
			AdherenceRate float64 `json:"adherence_rate"`
			SkipRate      float64 `json:"skip_rate"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.Total != 2 || resp.Taken != 1 || resp.Skipped != 1 || resp.Missed != 0 {
			t.Fatalf("unexpected detailed stats: %+v", resp)
		}
		if resp.AdherenceRate != 50.0 || resp.SkipRate != 50.0 {
			t.Fatalf("expected 50/50 rates, got %v/%v", resp.AdherenceRate, resp.SkipRate)
		}
	}

	// 10) Override pisa el skip y recién ahí decrementa
	{
		st, body := doReq(t, ts.URL, "POST", "/medicines/"+eveningID+"/take", map[string]any{
			"date":     testDate,
			"override": true,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 override take, got %d body=%s", st, string(body))
		}
		var resp struct {
			PillsRemaining int  `json:"pills_remaining"`
			LowStock       bool `json:"low_stock"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.PillsRemaining != 1 || !resp.LowStock {
			t.Fatalf("expected 1 pill and low stock after override, got %+v", resp)
		}
	}

	// 11) Low stock list
	{
		st, body := doReq(t, ts.URL, "GET", "/medicines/low-stock", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 low-stock, got %d body=%s", st, string(body))
		}
		var resp []struct {
			ID string `json:"id"`
		}
		mustUnmarshal(t, body, &resp)
		if len(resp) != 1 || resp[0].ID != eveningID {
			t.Fatalf("expected only evening medicine low on stock, got %+v", resp)
		}
	}

	// 12) El contador de versión avanzó con cada escritura
	{
		st, body := doReq(t, ts.URL, "GET", "/version", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 version, got %d body=%s", st, string(body))
		}
		var resp struct {
			Version int64 `json:"version"`
		}
		mustUnmarshal(t, body, &resp)
		if resp.Version < 5 {
			t.Fatalf("expected at least 5 writes, got version %d", resp.Version)
		}
	}

	// 13) Borrar la medicina no borra su historial
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/medicines/"+morningID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 delete, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "GET", "/medicines/"+morningID, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
	}
	{
		st, body := doReq(t, ts.URL, "GET", "/tracking?medicine_id="+morningID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 history after delete, got %d body=%s", st, string(body))
		}
		var resp []struct {
			Status string `json:"status"`
		}
		mustUnmarshal(t, body, &resp)
		if len(resp) != 1 || resp[0].Status != "taken" {
			t.Fatalf("expected retained taken record, got %+v", resp)
		}
	}
}

func TestHTTP_Validation(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	id := createMedicine(t, ts.URL, map[string]any{
		"name":                "Metformin",
		"dosage":              "500mg",
		"time_window":         "morning",
		"days":                []string{"mon"},
		"pills_remaining":     30,
		"pills_per_dose":      1,
		"low_stock_threshold": 5,
	})

	// ID duplicado => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/medicines", map[string]any{
			"id":                  id,
			"name":                "Metformin",
			"dosage":              "500mg",
			"time_window":         "morning",
			"days":                []string{"mon"},
			"pills_remaining":     30,
			"pills_per_dose":      1,
			"low_stock_threshold": 5,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate id, got %d", st)
		}
	}

	// Franja inválida => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/tracking/take", map[string]any{
			"medicine_id": id,
			"time_window": "midnight",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 bad window, got %d", st)
		}
	}

	// Motivo de skip desconocido => 400
	{
		st, _ := doReq(t, ts.URL, "POST", "/tracking/skip", map[string]any{
			"medicine_id": id,
			"reason":      "lazy",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 bad skip reason, got %d", st)
		}
	}

	// Medicina inexistente => 404
	{
		st, _ := doReq(t, ts.URL, "POST", "/tracking/take", map[string]any{
			"medicine_id": "nope",
		})
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 unknown medicine, got %d", st)
		}
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	// Forzar el store in-memory aunque el entorno tenga DB configurada.
	t.Setenv("DB_DSN", "")
	t.Setenv("MEDICINE_DB", "")

	return httptest.NewServer(router.NewRouter(router.Options{}))
}

func createMedicine(t *testing.T, baseURL string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medicines", payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medicine, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	mustUnmarshal(t, body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medicine: missing id body=%s", string(body))
	}
	return resp.ID
}

func pendingIDs(t *testing.T, body []byte) []string {
	t.Helper()

	var resp []struct {
		ID string `json:"id"`
	}
	mustUnmarshal(t, body, &resp)

	ids := make([]string, 0, len(resp))
	for _, e := range resp {
		ids = append(ids, e.ID)
	}
	return ids
}

func mustUnmarshal(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json unmarshal: %v body=%s", err, string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
