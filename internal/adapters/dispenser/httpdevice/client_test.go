package httpdevice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"medication-schedule/internal/platform/calendar"
)

type gateway struct {
	mu        sync.Mutex
	dispensed []string
	loads     []loadRequest
}

func (g *gateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/users/user-2/device", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(deviceResponse{DeviceRef: "robot-2"})
	})
	mux.HandleFunc("/v1/devices/robot-1/dispense", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in dispenseRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		g.mu.Lock()
		g.dispensed = append(g.dispensed, in.Date)
		g.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/devices/robot-1/load", func(w http.ResponseWriter, r *http.Request) {
		var in loadRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		g.mu.Lock()
		g.loads = append(g.loads, in)
		g.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/v1/devices/broken/dispense", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "jammed", http.StatusInternalServerError)
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *gateway) {
	t.Helper()
	g := &gateway{}
	ts := httptest.NewServer(g.handler())
	t.Cleanup(ts.Close)

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "k", Devices: map[string]string{"user-1": "robot-1"}})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return c, g
}

func TestClient_ResolveDevice(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if ref, ok, err := c.ResolveDevice(ctx, "user-1"); err != nil || !ok || ref != "robot-1" {
		t.Fatalf("static device: %q %v %v", ref, ok, err)
	}
	if ref, ok, err := c.ResolveDevice(ctx, "user-2"); err != nil || !ok || ref != "robot-2" {
		t.Fatalf("gateway device: %q %v %v", ref, ok, err)
	}
	if _, ok, err := c.ResolveDevice(ctx, "user-3"); err != nil || ok {
		t.Fatalf("expected no device for user-3, got ok=%v err=%v", ok, err)
	}
}

func TestClient_DispenseAndLoad(t *testing.T) {
	c, g := newTestClient(t)
	ctx := context.Background()
	d1 := calendar.Date{Year: 2024, Month: 1, Day: 2}
	d2 := calendar.Date{Year: 2024, Month: 1, Day: 1}

	if err := c.DispenseForDay(ctx, "robot-1", d1); err != nil {
		t.Fatalf("DispenseForDay error: %v", err)
	}
	if err := c.ApplyDayLoad(ctx, "robot-1", map[calendar.Date]int{d1: 3, d2: 2}); err != nil {
		t.Fatalf("ApplyDayLoad error: %v", err)
	}

	if len(g.dispensed) != 1 || g.dispensed[0] != "2024-01-02" {
		t.Fatalf("unexpected dispensed: %v", g.dispensed)
	}
	if len(g.loads) != 1 || len(g.loads[0].Days) != 2 || g.loads[0].Days[0].Date != "2024-01-01" {
		t.Fatalf("unexpected loads: %+v", g.loads)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t)
	err := c.DispenseForDay(context.Background(), "broken", calendar.Date{Year: 2024, Month: 1, Day: 1})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
