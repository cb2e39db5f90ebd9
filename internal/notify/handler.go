package notify

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	port "medication-schedule/internal/ports/notify"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, e *Engine) {
	r.Get("/users/{userID}/notifications", listNotificationsHandler(e))
}

type notificationResponse struct {
	ID        string        `json:"id"`
	Rule      port.Rule     `json:"rule"`
	Key       string        `json:"key,omitempty"`
	Severity  port.Severity `json:"severity"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}

// listNotificationsHandler godoc
// @Summary Listar notificaciones
// @Description Inbox del usuario, más nuevas primero.
// @Tags notifications
// @Produce json
// @Param userID path string true "ID del usuario asistido"
// @Param limit query int false "Máximo a devolver"
// @Success 200 {array} notificationResponse
// @Router /users/{userID}/notifications [get]
func listNotificationsHandler(e *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		items := e.ListByUser(chi.URLParam(r, "userID"), limit)
		out := make([]notificationResponse, 0, len(items))
		for _, it := range items {
			out = append(out, notificationResponse{
				ID:        it.ID,
				Rule:      it.Rule,
				Key:       it.Key,
				Severity:  it.Severity,
				Title:     it.Title,
				Message:   it.Message,
				CreatedAt: it.CreatedAt,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(out)
	}
}
