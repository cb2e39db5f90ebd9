package doses

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medication-schedule/internal/platform/calendar"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/users/{userID}/doses", func(dr chi.Router) {
		dr.Post("/", createDoseHandler(svc))
		dr.Get("/", listDosesHandler(svc))
	})

	r.Route("/doses/{doseID}", func(dr chi.Router) {
		dr.Get("/", getDoseHandler(svc))
		dr.Patch("/", updateDoseHandler(svc))
	})
}

// createDoseRequest es el cuerpo para registrar una dosis recurrente.
type createDoseRequest struct {
	MedicationID   string               `json:"medication_id"`
	Frequency      int                  `json:"frequency"`
	Weekdays       []string             `json:"weekdays"` // MONDAY..SUNDAY; vacío = todos los días
	Times          []calendar.TimeOfDay `json:"times"`    // "HH:MM"
	QuantityAmount float64              `json:"quantity_amount"`
	QuantityUnit   string               `json:"quantity_unit"`
	StartDate      *calendar.Date       `json:"start_date"` // YYYY-MM-DD
	EndDate        *calendar.Date       `json:"end_date"`
	Instructions   string               `json:"instructions"`
}

type updateDoseRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Frequency      *int                  `json:"frequency"`
	Weekdays       *[]string             `json:"weekdays"`
	Times          *[]calendar.TimeOfDay `json:"times"`
	QuantityAmount *float64              `json:"quantity_amount"`
	QuantityUnit   *string               `json:"quantity_unit"`
	StartDate      *calendar.Date        `json:"start_date"`
	EndDate        *calendar.Date        `json:"end_date"`
	Instructions   *string               `json:"instructions"`
}

// doseResponse representa una dosis devuelta por la API.
type doseResponse struct {
	ID             string               `json:"id"`
	UserID         string               `json:"user_id"`
	MedicationID   string               `json:"medication_id"`
	Frequency      int                  `json:"frequency"`
	Weekdays       []string             `json:"weekdays"`
	Times          []calendar.TimeOfDay `json:"times"`
	QuantityAmount float64              `json:"quantity_amount"`
	QuantityUnit   QuantityUnit         `json:"quantity_unit"`
	StartDate      *calendar.Date       `json:"start_date,omitempty"`
	EndDate        *calendar.Date       `json:"end_date,omitempty"`
	Instructions   string               `json:"instructions"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// createDoseHandler godoc
// @Summary Crear dosis
// @Description Registra una dosis recurrente para el usuario asistido. Si se envían `times`, su cantidad debe coincidir con `frequency`.
// @Tags doses
// @Accept json
// @Produce json
// @Param userID path string true "ID del usuario asistido"
// @Param payload body createDoseRequest true "Definición de la dosis"
// @Success 201 {object} doseResponse
// @Failure 400 {string} string "invalid json / reglas de validación"
// @Router /users/{userID}/doses [post]
func createDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		weekdays, err := parseWeekdays(req.Weekdays)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var unit QuantityUnit
		if strings.TrimSpace(req.QuantityUnit) != "" {
			u, ok := ParseQuantityUnit(req.QuantityUnit)
			if !ok {
				http.Error(w, "unknown quantity_unit", http.StatusBadRequest)
				return
			}
			unit = u
		}

		d, err := svc.Create(r.Context(), CreateInput{
			UserID:         chi.URLParam(r, "userID"),
			MedicationID:   req.MedicationID,
			Frequency:      req.Frequency,
			Weekdays:       weekdays,
			Times:          req.Times,
			QuantityAmount: req.QuantityAmount,
			QuantityUnit:   unit,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Instructions:   req.Instructions,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDoseResponse(d))
	}
}

// listDosesHandler godoc
// @Summary Listar dosis de un usuario
// @Tags doses
// @Produce json
// @Param userID path string true "ID del usuario asistido"
// @Success 200 {array} doseResponse
// @Router /users/{userID}/doses [get]
func listDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDoseResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getDoseHandler godoc
// @Summary Obtener dosis
// @Tags doses
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Success 200 {object} doseResponse
// @Failure 404 {string} string "dose not found"
// @Router /doses/{doseID} [get]
func getDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

// updateDoseHandler godoc
// @Summary Actualizar dosis
// @Description PATCH parcial. Enviar `weekdays: []` vuelve a "todos los días"; `times: []` vuelve a horarios por defecto.
// @Tags doses
// @Accept json
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Param payload body updateDoseRequest true "Campos a modificar"
// @Success 200 {object} doseResponse
// @Failure 400 {string} string "invalid json / reglas de validación"
// @Failure 404 {string} string "dose not found"
// @Router /doses/{doseID} [patch]
func updateDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Frequency:      req.Frequency,
			QuantityAmount: req.QuantityAmount,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
			Instructions:   req.Instructions,
		}
		if req.Weekdays != nil {
			wd, err := parseWeekdays(*req.Weekdays)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if wd == nil {
				wd = []time.Weekday{}
			}
			in.Weekdays = wd
		}
		if req.Times != nil {
			in.Times = *req.Times
			if in.Times == nil {
				in.Times = []calendar.TimeOfDay{}
			}
		}
		if req.QuantityUnit != nil {
			u, ok := ParseQuantityUnit(*req.QuantityUnit)
			if !ok {
				http.Error(w, "unknown quantity_unit", http.StatusBadRequest)
				return
			}
			in.QuantityUnit = &u
		}

		d, err := svc.Update(r.Context(), chi.URLParam(r, "doseID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func parseWeekdays(in []string) ([]time.Weekday, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]time.Weekday, 0, len(in))
	for _, raw := range in {
		wd, ok := ParseWeekday(raw)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", raw)
		}
		out = append(out, wd)
	}
	return out, nil
}

// ParseWeekday acepta nombres completos o abreviados en inglés ("MONDAY", "mon").
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToUpper(wd.String())
		if s == name || s == name[:3] {
			return wd, true
		}
	}
	return 0, false
}

func toDoseResponse(d Dose) doseResponse {
	weekdays := make([]string, 0, len(d.Weekdays))
	for _, wd := range d.Weekdays {
		weekdays = append(weekdays, strings.ToUpper(wd.String()))
	}
	times := d.Times
	if times == nil {
		times = []calendar.TimeOfDay{}
	}
	return doseResponse{
		ID:             d.ID,
		UserID:         d.UserID,
		MedicationID:   d.MedicationID,
		Frequency:      d.Frequency,
		Weekdays:       weekdays,
		Times:          times,
		QuantityAmount: d.QuantityAmount,
		QuantityUnit:   d.QuantityUnit,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		Instructions:   d.Instructions,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
