package occurrences

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/users/{userID}/occurrences", func(or chi.Router) {
		or.Get("/", listOccurrencesHandler(svc))
		or.Post("/generate", generateOccurrencesHandler(svc))
	})

	r.Route("/occurrences/{occurrenceID}", func(or chi.Router) {
		or.Get("/", getOccurrenceHandler(svc))
		or.Post("/taken", markTakenHandler(svc))
		or.Put("/status", setStatusHandler(svc))
	})
}

type generateRequest struct {
	From string `json:"from"` // RFC3339 o "YYYY-MM-DDTHH:MM" (zona del servicio)
	To   string `json:"to"`
}

type markTakenRequest struct {
	TakenAt string `json:"taken_at"` // opcional; vacío = ahora
	Note    string `json:"note"`
}

type setStatusRequest struct {
	Status string `json:"status"` // TAKEN | MISSED
	Note   string `json:"note"`
}

type occurrenceResponse struct {
	ID          string     `json:"id"`
	DoseID      string     `json:"dose_id"`
	UserID      string     `json:"user_id"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Status      Status     `json:"status"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type capacityResponse struct {
	Error     string             `json:"error"`
	Max       int                `json:"max_per_day"`
	Days      []capacityDayEntry `json:"days"`
	Truncated bool               `json:"truncated"`
}

type capacityDayEntry struct {
	Date      string              `json:"date"`
	Existing  int                 `json:"existing"`
	Attempted int                 `json:"attempted"`
	Items     []capacityItemEntry `json:"items"`
}

type capacityItemEntry struct {
	DoseID string `json:"dose_id"`
	Time   string `json:"time"`
}

// generateOccurrencesHandler godoc
// @Summary Generar ocurrencias
// @Description Materializa las tomas faltantes del usuario en la ventana. Idempotente. Si algún día supera el cupo de 7 no se crea nada y se devuelve el reporte.
// @Tags occurrences
// @Accept json
// @Produce json
// @Param userID path string true "ID del usuario asistido"
// @Param payload body generateRequest true "Ventana [from, to]"
// @Success 200 {array} occurrenceResponse
// @Failure 400 {string} string "invalid json / ventana inválida"
// @Failure 422 {object} capacityResponse
// @Router /users/{userID}/occurrences/generate [post]
func generateOccurrencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		from, to, err := parseWindow(req.From, req.To, svc.Location())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.Generate(r.Context(), chi.URLParam(r, "userID"), from, to)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(items))
	}
}

// listOccurrencesHandler godoc
// @Summary Listar ocurrencias
// @Description Refresca estados (DUE/MISSED) y devuelve la ventana ordenada por horario.
// @Tags occurrences
// @Produce json
// @Param userID path string true "ID del usuario asistido"
// @Param from query string true "Inicio de la ventana"
// @Param to query string true "Fin de la ventana"
// @Success 200 {array} occurrenceResponse
// @Failure 400 {string} string "ventana inválida"
// @Router /users/{userID}/occurrences [get]
func listOccurrencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, to, err := parseWindow(q.Get("from"), q.Get("to"), svc.Location())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.List(r.Context(), chi.URLParam(r, "userID"), from, to)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(items))
	}
}

// getOccurrenceHandler godoc
// @Summary Obtener ocurrencia
// @Tags occurrences
// @Produce json
// @Param occurrenceID path string true "ID de la ocurrencia"
// @Success 200 {object} occurrenceResponse
// @Failure 404 {string} string "occurrence not found"
// @Router /occurrences/{occurrenceID} [get]
func getOccurrenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := svc.Get(r.Context(), chi.URLParam(r, "occurrenceID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(o))
	}
}

// markTakenHandler godoc
// @Summary Marcar como tomada
// @Description Solo ocurrencias ya vencidas y con menos de 24h. Dispara el dispensador y la notificación DOSE_TAKEN.
// @Tags occurrences
// @Accept json
// @Produce json
// @Param occurrenceID path string true "ID de la ocurrencia"
// @Param payload body markTakenRequest false "Hora de toma y nota"
// @Success 200 {object} occurrenceResponse
// @Failure 404 {string} string "occurrence not found"
// @Failure 409 {string} string "occurrence locked"
// @Router /occurrences/{occurrenceID}/taken [post]
func markTakenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req markTakenRequest
		// Body opcional.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var takenAt *time.Time
		if strings.TrimSpace(req.TakenAt) != "" {
			t, err := parseInstant(req.TakenAt, svc.Location())
			if err != nil {
				http.Error(w, "taken_at: "+err.Error(), http.StatusBadRequest)
				return
			}
			takenAt = &t
		}

		o, err := svc.MarkTaken(r.Context(), chi.URLParam(r, "occurrenceID"), takenAt, req.Note)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(o))
	}
}

// setStatusHandler godoc
// @Summary Cambiar estado
// @Description Acepta TAKEN o MISSED. MISSED nunca pisa una toma confirmada.
// @Tags occurrences
// @Accept json
// @Produce json
// @Param occurrenceID path string true "ID de la ocurrencia"
// @Param payload body setStatusRequest true "Nuevo estado"
// @Success 200 {object} occurrenceResponse
// @Failure 400 {string} string "status inválido"
// @Failure 404 {string} string "occurrence not found"
// @Failure 409 {string} string "occurrence locked"
// @Router /occurrences/{occurrenceID}/status [put]
func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		st, ok := ParseStatus(req.Status)
		if !ok {
			http.Error(w, "unknown status", http.StatusBadRequest)
			return
		}

		o, err := svc.SetStatus(r.Context(), chi.URLParam(r, "occurrenceID"), st, req.Note)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(o))
	}
}

func parseWindow(fromRaw, toRaw string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := parseInstant(fromRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	to, err := parseInstant(toRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
	}
	return from, to, nil
}

// parseInstant acepta RFC3339 o fecha/hora local sin zona.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("must be RFC3339 or YYYY-MM-DDTHH:MM")
}

func toResponse(o Occurrence) occurrenceResponse {
	return occurrenceResponse{
		ID:          o.ID,
		DoseID:      o.DoseID,
		UserID:      o.UserID,
		ScheduledAt: o.ScheduledAt,
		Status:      o.Status,
		TakenAt:     o.TakenAt,
		Note:        o.Note,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toResponses(items []Occurrence) []occurrenceResponse {
	out := make([]occurrenceResponse, 0, len(items))
	for _, o := range items {
		out = append(out, toResponse(o))
	}
	return out
}

func writeError(w http.ResponseWriter, err error) {
	var capErr *CapacityError
	switch {
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusUnprocessableEntity, toCapacityResponse(capErr))
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrLocked):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toCapacityResponse(e *CapacityError) capacityResponse {
	days := make([]capacityDayEntry, 0, len(e.Days))
	for _, d := range e.Days {
		items := make([]capacityItemEntry, 0, len(d.Items))
		for _, it := range d.Items {
			items = append(items, capacityItemEntry{DoseID: it.DoseID, Time: it.At.Format("15:04")})
		}
		days = append(days, capacityDayEntry{
			Date:      d.Date.String(),
			Existing:  d.Existing,
			Attempted: d.Attempted,
			Items:     items,
		})
	}
	return capacityResponse{
		Error:     ErrCapacityExceeded.Error(),
		Max:       e.Max,
		Days:      days,
		Truncated: e.Truncated,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
