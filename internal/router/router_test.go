package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medication-schedule/internal/notify"
	"medication-schedule/internal/router"
)

type occurrenceDTO struct {
	ID          string    `json:"id"`
	DoseID      string    `json:"dose_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      string    `json:"status"`
}

func TestHTTP_EndToEnd_GenerateAndTake(t *testing.T) {
	engine := notify.New(notify.Config{}, nil)
	engine.Start(context.Background())
	defer engine.Stop(context.Background())

	ts := httptest.NewServer(router.NewRouter(router.Options{Notifications: engine, Location: time.UTC}))
	defer ts.Close()

	userID := "user-1"

	now := time.Now().UTC()

	// 1) Crear dosis de 4 tomas diarias (horarios por defecto)
	doseID := createDose(t, ts.URL, userID, map[string]any{
		"medication_id":   "med-1",
		"frequency":       4,
		"quantity_amount": 1,
		"quantity_unit":   "PILL",
		"start_date":      now.AddDate(0, 0, -3).Format("2006-01-02"),
	})

	// 2) Generar las últimas 23h: al menos tres tomas ya vencidas
	window := map[string]any{
		"from": now.Add(-23 * time.Hour).Format(time.RFC3339),
		"to":   now.Add(-time.Minute).Format(time.RFC3339),
	}
	var first []occurrenceDTO
	{
		st, body := doReq(t, ts.URL, "POST", "/users/"+userID+"/occurrences/generate", window)
		if st != http.StatusOK {
			t.Fatalf("expected 200 generate, got %d body=%s", st, string(body))
		}
		mustDecode(t, body, &first)
	}
	if len(first) < 3 {
		t.Fatalf("expected at least 3 occurrences in 23h, got %d", len(first))
	}

	// 3) Generar de nuevo no duplica
	{
		st, body := doReq(t, ts.URL, "POST", "/users/"+userID+"/occurrences/generate", window)
		if st != http.StatusOK {
			t.Fatalf("expected 200 regenerate, got %d body=%s", st, string(body))
		}
		var again []occurrenceDTO
		mustDecode(t, body, &again)
		if len(again) != len(first) {
			t.Fatalf("regenerate must be idempotent: %d vs %d", len(again), len(first))
		}
		for _, o := range again {
			if o.DoseID != doseID || o.Status != "DUE" {
				t.Fatalf("expected DUE occurrences of %s, got %+v", doseID, o)
			}
		}
	}

	// 4) Marcar la última como tomada
	target := first[len(first)-1]
	{
		st, body := doReq(t, ts.URL, "POST", "/occurrences/"+target.ID+"/taken", map[string]any{"note": "ok"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 mark taken, got %d body=%s", st, string(body))
		}
		var got occurrenceDTO
		mustDecode(t, body, &got)
		if got.Status != "TAKEN" {
			t.Fatalf("expected TAKEN, got %s", got.Status)
		}
	}

	// 5) Segunda vez: bloqueada
	{
		st, _ := doReq(t, ts.URL, "POST", "/occurrences/"+target.ID+"/taken", nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on second mark taken, got %d", st)
		}
	}

	// 6) MISSED no pisa TAKEN
	{
		st, _ := doReq(t, ts.URL, "PUT", "/occurrences/"+target.ID+"/status", map[string]any{"status": "MISSED"})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 setting MISSED over TAKEN, got %d", st)
		}
	}

	// 7) Aparece DOSE_TAKEN en el inbox
	waitForRule(t, ts.URL, userID, "DOSE_TAKEN")
}

func TestHTTP_DefaultNotificationsAreDelivered(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{Location: time.UTC}))
	defer ts.Close()

	userID := "user-3"
	now := time.Now().UTC()
	createDose(t, ts.URL, userID, map[string]any{
		"medication_id": "med-1",
		"frequency":     4,
		"start_date":    now.AddDate(0, 0, -3).Format("2006-01-02"),
	})

	st, body := doReq(t, ts.URL, "POST", "/users/"+userID+"/occurrences/generate", map[string]any{
		"from": now.Add(-23 * time.Hour).Format(time.RFC3339),
		"to":   now.Add(-time.Minute).Format(time.RFC3339),
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 generate, got %d body=%s", st, string(body))
	}
	var items []occurrenceDTO
	mustDecode(t, body, &items)
	if len(items) == 0 {
		t.Fatalf("expected occurrences to take")
	}

	if st, body := doReq(t, ts.URL, "POST", "/occurrences/"+items[0].ID+"/taken", nil); st != http.StatusOK {
		t.Fatalf("expected 200 mark taken, got %d body=%s", st, string(body))
	}
	waitForRule(t, ts.URL, userID, "DOSE_TAKEN")
}

func TestHTTP_Generate_CapacityExceeded(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{Location: time.UTC}))
	defer ts.Close()

	userID := "user-2"
	for i := 0; i < 2; i++ {
		createDose(t, ts.URL, userID, map[string]any{
			"medication_id":   "med",
			"frequency":       4,
			"quantity_amount": 1,
			"quantity_unit":   "PILL",
		})
	}

	day := time.Now().UTC().AddDate(0, 0, 3)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	st, body := doReq(t, ts.URL, "POST", "/users/"+userID+"/occurrences/generate", map[string]any{
		"from": from.Format(time.RFC3339),
		"to":   from.Add(24*time.Hour - time.Minute).Format(time.RFC3339),
	})
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", st, string(body))
	}

	var report struct {
		Max  int `json:"max_per_day"`
		Days []struct {
			Existing  int `json:"existing"`
			Attempted int `json:"attempted"`
		} `json:"days"`
	}
	mustDecode(t, body, &report)
	if report.Max != 7 || len(report.Days) != 1 || report.Days[0].Existing != 7 || report.Days[0].Attempted != 1 {
		t.Fatalf("unexpected capacity report: %s", string(body))
	}

	// Nada quedó persistido.
	q := "?from=" + from.Format(time.RFC3339) + "&to=" + from.Add(24*time.Hour-time.Minute).Format(time.RFC3339)
	st, body = doReq(t, ts.URL, "GET", "/users/"+userID+"/occurrences"+q, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 list, got %d body=%s", st, string(body))
	}
	var list []occurrenceDTO
	mustDecode(t, body, &list)
	if len(list) != 0 {
		t.Fatalf("expected no occurrences after rejection, got %d", len(list))
	}
}

func TestHTTP_Errors(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	if st, _ := doReq(t, ts.URL, "GET", "/occurrences/nope", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "POST", "/users/u/occurrences/generate", map[string]any{"from": "yesterday"}); st != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "POST", "/users/u/doses", map[string]any{"frequency": 30}); st != http.StatusBadRequest {
		t.Fatalf("expected 400 for frequency out of range, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/health", nil); st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
}

func waitForRule(t *testing.T, baseURL, userID, rule string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, body := doReq(t, baseURL, "GET", "/users/"+userID+"/notifications", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 notifications, got %d", st)
		}
		var items []struct {
			Rule string `json:"rule"`
		}
		mustDecode(t, body, &items)
		for _, it := range items {
			if it.Rule == rule {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %s notification, got %s", rule, string(body))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func createDose(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/users/"+userID+"/doses", payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create dose, got %d body=%s", st, string(body))
	}
	var out struct {
		ID string `json:"id"`
	}
	mustDecode(t, body, &out)
	if out.ID == "" {
		t.Fatalf("missing dose id in response: %s", string(body))
	}
	return out.ID
}

func doReq(t *testing.T, baseURL, method, path string, body any) (int, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func mustDecode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}
