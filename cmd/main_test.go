package main

import (
	"testing"

	"github.com/henokg/talentsim/config"
	candidatectrl "github.com/henokg/talentsim/internal/controller/candidate"
	employerctrl "github.com/henokg/talentsim/internal/controller/employer"
	"go.uber.org/fx/fxtest"
)

func TestRegisteredRoutes(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = "0"

	router := NewGinEngine()
	RegisterRoutesAndStartServer(
		fxtest.NewLifecycle(t),
		router,
		cfg,
		employerctrl.NewSimulationController(nil),
		employerctrl.NewInvitationController(nil),
		employerctrl.NewResultController(nil),
		candidatectrl.NewSessionController(nil, nil, nil),
	)

	registered := make(map[string]bool)
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, route := range []string{
		"POST /api/v1/employer/simulations",
		"GET /api/v1/employer/simulations",
		"POST /api/v1/employer/simulations/generate-steps",
		"GET /api/v1/employer/simulations/:id",
		"PUT /api/v1/employer/simulations/:id",
		"DELETE /api/v1/employer/simulations/:id",
		"POST /api/v1/employer/simulations/:id/publish",
		"POST /api/v1/employer/simulations/:id/invite",
		"GET /api/v1/employer/simulations/:id/invitations",
		"GET /api/v1/employer/simulations/:id/results",
		"POST /api/v1/employer/invitations/:id/resend",
		"DELETE /api/v1/employer/invitations/:id",
		"PATCH /api/v1/employer/submissions/:id/status",
		"POST /api/v1/employer/submissions/:id/feedback",
		"POST /api/v1/candidate/invitations/accept",
		"POST /api/v1/candidate/invitations/:id/start",
		"GET /api/v1/candidate/sessions/:id",
		"POST /api/v1/candidate/sessions/:id/steps/:step_id/submit",
		"POST /api/v1/candidate/sessions/:id/report-cheat",
		"POST /api/v1/candidate/sessions/:id/complete",
		"GET /api/v1/candidate/sessions/:id/result",
	} {
		if !registered[route] {
			t.Errorf("route %s is not registered", route)
		}
	}
}
