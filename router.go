package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"presetwave/api"
	"presetwave/config"
	"presetwave/handlers"
	"presetwave/services/sessions"
	"presetwave/utils"
)

func buildRouter(cfg config.Config, sessionsSvc *sessions.Service, authHandler *handlers.AuthHandler, presetsHandler *handlers.PresetsHandler, adminHandler *handlers.AdminHandler) *mux.Router {
	router := utils.NewRouter(cfg.StorefrontOrigins...)
	router.Use(api.SessionMiddleware(sessionsSvc))

	// Credential endpoints share one limiter so a burst of guesses is
	// throttled per source IP.
	loginLimiter := api.NewIPRateLimiter(rate.Every(2*time.Second), 5)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/auth/login", api.RateLimitHandlerFunc(loginLimiter, authHandler.Login)).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/auth/register", api.RateLimitHandlerFunc(loginLimiter, authHandler.Register)).Methods("POST", "OPTIONS")
	apiRouter.HandleFunc("/auth/error", authHandler.Error).Methods("GET", "OPTIONS")
	apiRouter.Handle("/auth/me", api.RequireAuth()(http.HandlerFunc(authHandler.Me))).Methods("GET", "OPTIONS")

	apiRouter.HandleFunc("/presets", presetsHandler.List).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/presets/featured", presetsHandler.Featured).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/presets/categories", presetsHandler.Categories).Methods("GET", "OPTIONS")
	apiRouter.HandleFunc("/presets/{id}", presetsHandler.Get).Methods("GET", "OPTIONS")
	apiRouter.Handle("/presets/{id}/download", api.RequireAuth()(http.HandlerFunc(presetsHandler.Download))).Methods("POST", "OPTIONS")
	apiRouter.Handle("/presets/{id}/favorite", api.RequireAuth()(http.HandlerFunc(presetsHandler.ToggleFavorite))).Methods("POST", "OPTIONS")

	meRouter := apiRouter.PathPrefix("/me").Subrouter()
	meRouter.Use(api.RequireAuth())
	meRouter.HandleFunc("/favorites", presetsHandler.Favorites).Methods("GET", "OPTIONS")
	meRouter.HandleFunc("/downloads", presetsHandler.DownloadHistory).Methods("GET", "OPTIONS")
	meRouter.HandleFunc("/downloads/jobs/{id}", presetsHandler.DownloadJob).Methods("GET", "OPTIONS")

	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(api.RequireAuth(), api.RequireAdmin())
	adminRouter.HandleFunc("/users", adminHandler.ListUsers).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/users", adminHandler.CreateUser).Methods("POST")
	adminRouter.HandleFunc("/users/{id}", adminHandler.UpdateUser).Methods("PATCH", "OPTIONS")
	adminRouter.HandleFunc("/users/{id}", adminHandler.DeleteUser).Methods("DELETE")
	adminRouter.HandleFunc("/users/{id}/password", adminHandler.ResetPassword).Methods("POST", "OPTIONS")
	adminRouter.HandleFunc("/users/{id}/logout", adminHandler.ForceLogout).Methods("POST", "OPTIONS")
	adminRouter.HandleFunc("/presets", adminHandler.CreatePreset).Methods("POST", "OPTIONS")
	adminRouter.HandleFunc("/presets/{id}", adminHandler.UpdatePreset).Methods("PUT", "OPTIONS")
	adminRouter.HandleFunc("/presets/{id}", adminHandler.DeletePreset).Methods("DELETE")
	adminRouter.HandleFunc("/activity", adminHandler.Activity).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/analytics", adminHandler.Analytics).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/invitations", adminHandler.ListInvitations).Methods("GET", "OPTIONS")
	adminRouter.HandleFunc("/invitations", adminHandler.CreateInvitation).Methods("POST")
	adminRouter.HandleFunc("/invitations/{id}", adminHandler.RevokeInvitation).Methods("DELETE", "OPTIONS")

	versionHandler := handlers.NewVersionHandler()
	router.HandleFunc("/version", versionHandler.GetVersion).Methods("GET", "OPTIONS")

	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", handlers.NewStaticHandler()))

	// Page routes fall through to the embedded shell behind the route
	// guard; this is where unauthenticated requests for /dashboard and
	// /admin pick up their login redirect.
	guard := api.NewGuard(api.DefaultPolicies)
	router.PathPrefix("/").Handler(guard.Middleware(handlers.ServeShell()))

	return router
}
