package handlers

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"attendance/middleware"
	"attendance/models"
)

// Router mounts the portal API, the account routes and the exports.
func Router(logger *zap.Logger, sessions *SessionHandler, auth *AuthHandler, exports *ExportHandler) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimiddleware.Recoverer)

	// Employee portal, keyed by device cookie
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Device)

		r.Get("/employees", sessions.Employees)
		r.Get("/calendar/{date}", sessions.Calendar)
		r.Get("/holidays", sessions.Holidays)
		r.Get("/days/{date}", sessions.Day)

		r.Get("/session", sessions.Snapshot)
		r.Post("/session/employee", sessions.SelectEmployee)
		r.Post("/session/shift/start", sessions.StartShift)
		r.Post("/session/shift/end", sessions.EndShift)
		r.Post("/session/clock-in", sessions.ClockIn)
		r.Post("/session/clock-out", sessions.ClockOut)
		r.Post("/session/breaks", sessions.StartBreak)
		r.Post("/session/breaks/stop", sessions.StopBreak)
		r.Get("/session/breaks/countdown", sessions.Countdown)
		r.Post("/session/note", sessions.Note)
		r.Post("/session/leave", sessions.Leave)
		r.Get("/session/export.json", sessions.ExportJSON)
	})

	router.Post("/login", auth.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)

		// Logout and password change stay reachable with a default password
		r.Post("/logout", auth.Logout)
		r.Post("/change-password", auth.ChangePassword)

		// Admin and HR only routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePasswordChange)
			r.Use(middleware.RequireRole(models.RoleAdmin, models.RoleHR))
			r.Get("/export/report", exports.Report)
			r.Get("/export/daily", exports.Daily)
		})
	})

	return router
}
