package router

import (
	"context"
	"net/http"
	"time"

	_ "medication-schedule/docs"
	memdisp "medication-schedule/internal/adapters/dispenser/memory"
	mem "medication-schedule/internal/adapters/storage/memory"
	"medication-schedule/internal/domain/doses"
	"medication-schedule/internal/domain/occurrences"
	"medication-schedule/internal/middleware"
	"medication-schedule/internal/notify"
	"medication-schedule/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Logger logger.Logger

	// Opcionales: si no vienen, se arma todo in-memory (modo dev / tests).
	Doses         *doses.Service
	Occurrences   *occurrences.Service
	Notifications *notify.Engine

	Location *time.Location
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	notifications := opts.Notifications
	if notifications == nil {
		// El que lo pasa en Options lo arranca y lo detiene.
		notifications = notify.New(notify.Config{}, log)
		notifications.Start(context.Background())
	}

	dosesSvc := opts.Doses
	if dosesSvc == nil {
		dosesSvc = doses.NewService(mem.NewDoseRepo())
	}

	occSvc := opts.Occurrences
	if occSvc == nil {
		occSvc = occurrences.NewService(mem.NewOccurrenceRepo(), dosesSvc, occurrences.Options{
			Dispenser: memdisp.New(memdisp.Config{}, notifications, log),
			Notifier:  notifications,
			Logger:    log,
			Location:  opts.Location,
		})
	}

	// Rutas por módulo
	doses.RegisterRoutes(r, dosesSvc)
	occurrences.RegisterRoutes(r, occSvc)
	notify.RegisterRoutes(r, notifications)

	return r
}
