package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/llm"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/notifier"
	"github.com/henokg/talentsim/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Simulation{},
		&model.Step{},
		&model.Invitation{},
		&model.AssessmentSession{},
		&model.StepSubmission{},
		&model.IntegrityFlag{},
		&model.Result{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testClock is a hand-advanced clock shared by every service in a test env.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubGateway struct {
	mu         sync.Mutex
	evaluation llm.Evaluation
	err        error
	calls      []llm.Payload
}

func (g *stubGateway) Evaluate(_ context.Context, _ llm.Kind, payload llm.Payload) (*llm.Evaluation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, payload)
	if g.err != nil {
		return nil, g.err
	}
	evaluation := g.evaluation
	return &evaluation, nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type sentNotification struct {
	To       string
	Template notifier.Template
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *stubNotifier) Send(to string, template notifier.Template, _ map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{To: to, Template: template})
}

func (n *stubNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

const invitationTestTTL = 7 * 24 * time.Hour

type testEnv struct {
	db          *gorm.DB
	clock       *testClock
	gateway     *stubGateway
	notifier    *stubNotifier
	simulations SimulationService
	invitations InvitationService
	sessions    SessionService
	scoring     ScoringService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	gw := &stubGateway{evaluation: llm.Evaluation{Score: 70, Feedback: "Solid answer"}}
	notif := &stubNotifier{}

	simulationRepo := repository.NewSimulationRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)

	simulations := NewSimulationService(simulationRepo, invitationRepo, gw, db).(*simulationService)
	simulations.clock = clock.Now

	invitations := NewInvitationService(invitationRepo, simulationRepo, notif, invitationTestTTL).(*invitationService)
	invitations.clock = clock.Now

	scoring := NewScoringService(resultRepo, sessionRepo, submissionRepo, invitationRepo, notif, db).(*scoringService)
	scoring.clock = clock.Now

	sessions := NewSessionService(sessionRepo, submissionRepo, invitationRepo, simulationRepo, scoring, gw, db).(*sessionService)
	sessions.clock = clock.Now
	sessions.syncScoring = true

	return &testEnv{
		db:          db,
		clock:       clock,
		gateway:     gw,
		notifier:    notif,
		simulations: simulations,
		invitations: invitations,
		sessions:    sessions,
		scoring:     scoring,
	}
}

// validCreateRequest builds a three-step simulation with weights
// 0.4/0.3/0.3 and a rubric summing to 1.0.
func validCreateRequest() dto.CreateSimulationRequest {
	return dto.CreateSimulationRequest{
		Title:           "Backend Engineer Simulation",
		Description:     "A day in the life of a backend engineer",
		Difficulty:      "mid",
		DurationMinutes: 60,
		Rubric: []dto.RubricCriterionDTO{
			{Criterion: "technical", Weight: 0.5},
			{Criterion: "communication", Weight: 0.3},
			{Criterion: "judgement", Weight: 0.2},
		},
		Steps: []dto.StepRequest{
			{Position: 1, Type: "free_text", Prompt: "Describe your approach to paging through a large dataset.", Weight: 0.4},
			{Position: 2, Type: "code_review", Prompt: "Review this handler for correctness.", Weight: 0.3},
			{Position: 3, Type: "free_text", Prompt: "Write a status update for a slipped deadline.", Weight: 0.3},
		},
	}
}

func (env *testEnv) publishSimulation(t *testing.T, employerID uint, req dto.CreateSimulationRequest) *dto.SimulationResponse {
	t.Helper()
	created, err := env.simulations.Create(employerID, req)
	if err != nil {
		t.Fatalf("create simulation: %v", err)
	}
	published, err := env.simulations.Publish(employerID, created.ID)
	if err != nil {
		t.Fatalf("publish simulation: %v", err)
	}
	return published
}

func (env *testEnv) acceptedInvitation(t *testing.T, employerID, simulationID, candidateID uint) *dto.InvitationResponse {
	t.Helper()
	report, err := env.invitations.Invite(employerID, simulationID, dto.InviteRequest{Emails: []string{"candidate@example.com"}})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if len(report.Invited) != 1 {
		t.Fatalf("expected 1 invitation, got %d", len(report.Invited))
	}

	var inv model.Invitation
	if err := env.db.First(&inv, report.Invited[0].ID).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	accepted, err := env.invitations.Accept(candidateID, inv.Token)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return accepted
}

func (env *testEnv) startedSession(t *testing.T, employerID, candidateID uint) (*dto.SimulationResponse, *dto.SessionResponse) {
	t.Helper()
	sim := env.publishSimulation(t, employerID, validCreateRequest())
	inv := env.acceptedInvitation(t, employerID, sim.ID, candidateID)
	session, err := env.sessions.Start(candidateID, inv.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return sim, session
}

func answer(text string) dto.SubmitStepRequest {
	return dto.SubmitStepRequest{Answer: dto.AnswerContentDTO{Text: text}, TimeSpentSeconds: 120}
}
