package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/invite-bot/api"
	"github.com/linesmerrill/invite-bot/config"
	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/models"
)

// requestTimeout bounds every ops request
const requestTimeout = 30 * time.Second

// App stores the router and the stores, so it can be reused
type App struct {
	Router      *mux.Router
	Config      config.Config
	Invites     databases.InviteCodeDatabase
	Quota       databases.QuotaDatabase
	Eligibility databases.EligibilityDatabase
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	api.TokenAuth{Token: a.Config.AdminAPIToken}.SetupGoGuardian()

	r := mux.NewRouter()
	r.Use(api.RequestIDMiddleware, api.TimeoutMiddleware(requestTimeout))

	inv := Invite{Invites: a.Invites, Quota: a.Quota, Eligibility: a.Eligibility}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Handle("/stats", api.Middleware(http.HandlerFunc(inv.StatsHandler))).Methods("GET")
	apiV1.Handle("/export", api.Middleware(http.HandlerFunc(inv.ExportHandler))).Methods("GET")

	return r
}

// Initialize is invoked by main to create the router
func (a *App) Initialize() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
