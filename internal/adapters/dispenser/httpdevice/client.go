package httpdevice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"medication-schedule/internal/platform/calendar"
	"medication-schedule/internal/platform/httpclient"
	"medication-schedule/internal/ports/dispense"
)

var (
	ErrNotConfigured = errors.New("dispenser device client not configured")
	ErrUpstream      = errors.New("dispenser device upstream error")
)

// Config del cliente hacia el firmware/gateway del dispensador.
type Config struct {
	BaseURL string
	APIKey  string
	// Opcional: nombre del header de la API key. Vacío = "X-Api-Key".
	APIKeyHeader string
	Timeout      time.Duration
	// Devices fijos usuario -> dispositivo. Si el usuario no está, se consulta al gateway.
	Devices map[string]string
}

type Client struct {
	http    *httpclient.Client
	devices map[string]string
}

var _ dispense.Sink = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.New(httpclient.Options{
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
		Headers: map[string]string{header: strings.TrimSpace(cfg.APIKey)},
	})
	if err != nil {
		return nil, err
	}

	devices := make(map[string]string, len(cfg.Devices))
	for u, d := range cfg.Devices {
		devices[u] = d
	}
	return &Client{http: hc, devices: devices}, nil
}

type deviceResponse struct {
	DeviceRef string `json:"device_ref"`
}

type dispenseRequest struct {
	Date string `json:"date"`
}

type loadRequest struct {
	Days []dayLoad `json:"days"`
}

type dayLoad struct {
	Date  string `json:"date"`
	Pills int    `json:"pills"`
}

func (c *Client) ResolveDevice(ctx context.Context, userID string) (string, bool, error) {
	userID = strings.TrimSpace(userID)
	if ref, ok := c.devices[userID]; ok {
		return ref, true, nil
	}

	var out deviceResponse
	err := c.http.DoJSON(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/device", nil, &out)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	ref := strings.TrimSpace(out.DeviceRef)
	return ref, ref != "", nil
}

func (c *Client) DispenseForDay(ctx context.Context, ref string, day calendar.Date) error {
	err := c.http.DoJSON(ctx, http.MethodPost, "/v1/devices/"+url.PathEscape(ref)+"/dispense",
		dispenseRequest{Date: day.String()}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) ApplyDayLoad(ctx context.Context, ref string, load map[calendar.Date]int) error {
	days := make([]dayLoad, 0, len(load))
	for d, n := range load {
		days = append(days, dayLoad{Date: d.String(), Pills: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	err := c.http.DoJSON(ctx, http.MethodPut, "/v1/devices/"+url.PathEscape(ref)+"/load", loadRequest{Days: days}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return nil
}
