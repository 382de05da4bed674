package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MantraGGR/name---level-up-irl-app/internal/auth"
	"github.com/MantraGGR/name---level-up-irl-app/internal/service"
)

type API struct {
	Service *service.Service
	Auth    *auth.Manager
	Origins []string
	Log     *zap.Logger
	// Timeout bounds each request; provider calls run inside it.
	Timeout time.Duration
}

func (a *API) Router() http.Handler {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))
	r.Use(a.loggingMiddleware)
	r.Use(a.corsMiddleware)

	r.Get("/health", a.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Get("/me", a.handleMe)
		r.Get("/ledger", a.handleLedger)
		r.Post("/ledger/xp", a.handleAddXP)
		r.Post("/onboarding", a.handleOnboarding)

		r.Route("/assessments", func(r chi.Router) {
			r.Post("/", a.handleSubmitAssessment)
			r.Get("/latest", a.handleLatestAssessment)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", a.handleListTasks)
			r.Post("/", a.handleCreateTask)
			r.Post("/{id}/complete", a.handleCompleteTask)
			r.Delete("/{id}", a.handleDeleteTask)
		})
		r.Route("/quests", func(r chi.Router) {
			r.Get("/", a.handleListQuests)
			r.Post("/generate", a.handleGenerateQuests)
			r.Patch("/{id}/progress", a.handleQuestProgress)
			r.Post("/{id}/complete", a.handleCompleteQuest)
			r.Delete("/{id}", a.handleDeleteQuest)
		})
		r.Route("/goals", func(r chi.Router) {
			r.Get("/", a.handleListGoals)
			r.Post("/", a.handleCreateGoal)
			r.Post("/{id}/milestones/{milestoneID}/complete", a.handleCompleteGoalMilestone)
			r.Delete("/{id}", a.handleDeleteGoal)
		})
		r.Route("/ultimate-goals", func(r chi.Router) {
			r.Get("/", a.handleListUltimateGoals)
			r.Post("/", a.handleCreateCustomUltimateGoal)
			r.Post("/initialize", a.handleInitializeUltimateGoals)
			r.Post("/{id}/milestones/{milestoneID}/complete", a.handleCompleteUltimateMilestone)
			r.Delete("/{id}", a.handleDeleteUltimateGoal)
		})
		r.Post("/chat", a.handleChat)
	})

	return r
}
