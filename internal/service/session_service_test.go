package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/henokg/talentsim/internal/apperr"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/llm"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/repository"
	"gorm.io/datatypes"
)

func TestStartSessionSetsDeadlineFromDuration(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	if session.Status != "ACTIVE" {
		t.Errorf("status = %q, want ACTIVE", session.Status)
	}
	wantDeadline := session.StartedAt.Add(60 * time.Minute)
	if !session.ExpiresAt.Equal(wantDeadline) {
		t.Errorf("expires_at = %v, want started_at + duration = %v", session.ExpiresAt, wantDeadline)
	}
	if len(session.Steps) != 3 {
		t.Errorf("steps = %d, want 3", len(session.Steps))
	}
}

func TestStartSessionRequiresAcceptedInvitation(t *testing.T) {
	env := newTestEnv(t)
	sim := env.publishSimulation(t, 1, validCreateRequest())
	report, err := env.invitations.Invite(1, sim.ID, dto.InviteRequest{Emails: []string{"a@example.com"}})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	_, err = env.sessions.Start(10, report.Invited[0].ID)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("start on pending invitation error = %v, want CONFLICT", err)
	}
}

func TestStartSessionRejectsOtherCandidate(t *testing.T) {
	env := newTestEnv(t)
	sim := env.publishSimulation(t, 1, validCreateRequest())
	inv := env.acceptedInvitation(t, 1, sim.ID, 10)

	if _, err := env.sessions.Start(11, inv.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("error = %v, want FORBIDDEN", err)
	}
}

func TestStartSessionRejectsConcurrentActive(t *testing.T) {
	env := newTestEnv(t)
	sim := env.publishSimulation(t, 1, validCreateRequest())
	inv := env.acceptedInvitation(t, 1, sim.ID, 10)

	if _, err := env.sessions.Start(10, inv.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := env.sessions.Start(10, inv.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("second start error = %v, want CONFLICT", err)
	}
}

func TestStartSessionRetake(t *testing.T) {
	t.Run("no retake after an expired attempt", func(t *testing.T) {
		env := newTestEnv(t)
		sim := env.publishSimulation(t, 1, validCreateRequest())
		inv := env.acceptedInvitation(t, 1, sim.ID, 10)
		if _, err := env.sessions.Start(10, inv.ID); err != nil {
			t.Fatalf("start: %v", err)
		}

		env.clock.Advance(2 * time.Hour)
		if _, err := env.sessions.Start(10, inv.ID); !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("error = %v, want CONFLICT", err)
		}
	})

	t.Run("retake grants exactly one extra attempt", func(t *testing.T) {
		env := newTestEnv(t)
		req := validCreateRequest()
		req.AllowRetake = true
		sim := env.publishSimulation(t, 1, req)
		inv := env.acceptedInvitation(t, 1, sim.ID, 10)
		if _, err := env.sessions.Start(10, inv.ID); err != nil {
			t.Fatalf("start: %v", err)
		}

		env.clock.Advance(2 * time.Hour)
		second, err := env.sessions.Start(10, inv.ID)
		if err != nil {
			t.Fatalf("retake start: %v", err)
		}
		if second.Status != "ACTIVE" {
			t.Errorf("retake status = %q, want ACTIVE", second.Status)
		}

		env.clock.Advance(2 * time.Hour)
		if _, err := env.sessions.Start(10, inv.ID); !apperr.IsKind(err, apperr.KindConflict) {
			t.Errorf("third start error = %v, want CONFLICT", err)
		}
	})
}

func TestSubmitStepScoresMultipleChoiceSynchronously(t *testing.T) {
	env := newTestEnv(t)
	correct := "A"
	req := validCreateRequest()
	req.Steps = []dto.StepRequest{
		{Position: 1, Type: "multiple_choice", Prompt: "Pick one.", Weight: 0.5, Options: []string{"A", "B"}, CorrectAnswer: &correct},
		{Position: 2, Type: "free_text", Prompt: "Explain.", Weight: 0.5},
	}
	sim := env.publishSimulation(t, 1, req)
	inv := env.acceptedInvitation(t, 1, sim.ID, 10)
	session, err := env.sessions.Start(10, inv.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	sub, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, dto.SubmitStepRequest{
		Answer: dto.AnswerContentDTO{Selected: "A"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.ScoringState != "SCORED" {
		t.Fatalf("scoring state = %q, want SCORED", sub.ScoringState)
	}
	if sub.Score == nil || *sub.Score != 100 {
		t.Errorf("score = %v, want 100", sub.Score)
	}
	if env.gateway.callCount() != 0 {
		t.Errorf("multiple choice must not reach the AI gateway")
	}
}

func TestSubmitStepDispatchesAIScoring(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	sub, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("I would use keyset pagination."))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// Scoring runs inline in tests, so the attached score is visible on a
	// re-read.
	if env.gateway.callCount() != 1 {
		t.Fatalf("gateway calls = %d, want 1", env.gateway.callCount())
	}
	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fresh.Submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(fresh.Submissions))
	}
	scored := fresh.Submissions[0]
	if scored.ID != sub.ID {
		t.Errorf("submission id changed across re-read")
	}
	if scored.ScoringState != "SCORED" || scored.Score == nil || *scored.Score != 70 {
		t.Errorf("submission = state %q score %v, want SCORED 70", scored.ScoringState, scored.Score)
	}
}

func TestSubmitStepAIFailureKeepsAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.err = errors.New("provider down")
	_, session := env.startedSession(t, 1, 10)

	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("my answer")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	sub := fresh.Submissions[0]
	if sub.ScoringState != "FAILED" {
		t.Errorf("scoring state = %q, want FAILED", sub.ScoringState)
	}
	if sub.Score != nil {
		t.Errorf("score = %v, want nil", *sub.Score)
	}
	if sub.Answer.Text != "my answer" {
		t.Errorf("answer lost on scoring failure")
	}
}

func TestSubmitStepRejectsScoredResubmission(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)
	stepID := session.Steps[0].ID

	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("first")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("second")); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("resubmit error = %v, want CONFLICT", err)
	}
}

func TestSubmitStepOverwritesFailedSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.err = errors.New("provider down")
	_, session := env.startedSession(t, 1, 10)
	stepID := session.Steps[0].ID

	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("first")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	env.gateway.err = nil
	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("second")); err != nil {
		t.Fatalf("resubmit after failure: %v", err)
	}

	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fresh.Submissions) != 1 {
		t.Fatalf("submissions = %d, want the single upserted row", len(fresh.Submissions))
	}
	sub := fresh.Submissions[0]
	if sub.Answer.Text != "second" || sub.ScoringState != "SCORED" {
		t.Errorf("submission = %q state %q, want second SCORED", sub.Answer.Text, sub.ScoringState)
	}
}

func TestSubmitStepAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	env.clock.Advance(61 * time.Minute)
	_, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("too late"))
	if !apperr.IsKind(err, apperr.KindExpired) {
		t.Fatalf("late submit error = %v, want EXPIRED", err)
	}

	// The read reaped the session.
	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != "ABANDONED" {
		t.Errorf("status = %q, want ABANDONED", fresh.Status)
	}
}

func TestSubmitStepUnknownStep(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	if _, err := env.sessions.SubmitStep(10, session.ID, 9999, answer("x")); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestReportViolation(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	if err := env.sessions.ReportViolation(10, session.ID, dto.ReportViolationRequest{Type: "telepathy"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("unknown type error = %v, want VALIDATION", err)
	}

	for _, kind := range []string{"TAB_SWITCH", "COPY_PASTE", "UNEXPECTED_EXIT"} {
		if err := env.sessions.ReportViolation(10, session.ID, dto.ReportViolationRequest{Type: kind}); err != nil {
			t.Fatalf("report %s: %v", kind, err)
		}
	}

	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fresh.IntegrityFlags) != 3 {
		t.Errorf("flags = %d, want 3", len(fresh.IntegrityFlags))
	}
	if fresh.Status != "ACTIVE" {
		t.Errorf("status = %q, violations must not end the session", fresh.Status)
	}
}

func completeAllSteps(t *testing.T, env *testEnv, candidateID uint, session *dto.SessionResponse) {
	t.Helper()
	for _, step := range session.Steps {
		if _, err := env.sessions.SubmitStep(candidateID, session.ID, step.ID, answer("answer for step")); err != nil {
			t.Fatalf("submit step %d: %v", step.Position, err)
		}
	}
}

func TestCompleteSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)
	completeAllSteps(t, env, 10, session)

	first, err := env.sessions.Complete(10, session.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	second, err := env.sessions.Complete(10, session.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second complete returned a different result (%d vs %d)", first.ID, second.ID)
	}

	// Completion closes out the invitation too.
	var inv model.Invitation
	if err := env.db.First(&inv, session.InvitationID).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != model.InvitationCompleted {
		t.Errorf("invitation status = %q, want COMPLETED", inv.Status)
	}
}

func TestCompleteBlocksOnUnansweredRequiredStep(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("only one")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, err := env.sessions.Complete(10, session.ID)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("complete error = %v, want VALIDATION", err)
	}
}

func TestCompleteSkipsBudgetedStepAfterItsWindow(t *testing.T) {
	env := newTestEnv(t)
	req := validCreateRequest()
	req.Steps[2].TimeLimitMinutes = 10
	sim := env.publishSimulation(t, 1, req)
	inv := env.acceptedInvitation(t, 1, sim.ID, 10)
	session, err := env.sessions.Start(10, inv.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("a")); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[1].ID, answer("b")); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	// The budgeted step still counts as required inside its window.
	if _, err := env.sessions.Complete(10, session.ID); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("complete inside window error = %v, want VALIDATION", err)
	}

	env.clock.Advance(11 * time.Minute)
	result, err := env.sessions.Complete(10, session.ID)
	if err != nil {
		t.Fatalf("complete after window: %v", err)
	}
	if len(result.Breakdown) != 3 {
		t.Errorf("breakdown entries = %d, want all 3 steps", len(result.Breakdown))
	}
}

// The end-to-end path: a candidate accepts, answers one step, and lets the
// clock run out. The expired session is abandoned on next read and still
// yields a result from the one scored answer.
func TestExpiredSessionYieldsPartialResult(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)

	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("scored at 70")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	env.clock.Advance(61 * time.Minute)
	fresh, err := env.sessions.Get(10, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != "ABANDONED" {
		t.Fatalf("status = %q, want ABANDONED", fresh.Status)
	}

	result, err := env.scoring.GetSessionResult(10, session.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.OverallScore != 70 {
		t.Errorf("overall = %f, want 70 (the single scored step, weight-normalized)", result.OverallScore)
	}
	if len(result.Breakdown) != 3 {
		t.Errorf("breakdown entries = %d, want all 3 steps", len(result.Breakdown))
	}

	// An abandoned attempt never completes the invitation.
	var inv model.Invitation
	if err := env.db.First(&inv, session.InvitationID).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != model.InvitationAccepted {
		t.Errorf("invitation status = %q, want ACCEPTED", inv.Status)
	}

	if _, err := env.sessions.Complete(10, session.ID); !apperr.IsKind(err, apperr.KindExpired) {
		t.Errorf("complete after expiry error = %v, want EXPIRED", err)
	}
}

// gateGateway holds every Evaluate call until the test releases it, so the
// test controls the order asynchronous evaluations land in.
type gateGateway struct {
	mu       sync.Mutex
	calls    int
	started  chan int
	releases []chan struct{}
	results  []llm.Evaluation
}

func (g *gateGateway) Evaluate(_ context.Context, _ llm.Kind, _ llm.Payload) (*llm.Evaluation, error) {
	g.mu.Lock()
	idx := g.calls
	g.calls++
	g.mu.Unlock()
	g.started <- idx
	<-g.releases[idx]
	evaluation := g.results[idx]
	return &evaluation, nil
}

func waitForScoringState(t *testing.T, env *testEnv, sessionID, stepID uint, state model.ScoringState) *model.StepSubmission {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var sub model.StepSubmission
		err := env.db.Where("session_id = ? AND step_id = ?", sessionID, stepID).First(&sub).Error
		if err == nil && sub.ScoringState == state {
			return &sub
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("submission never reached state %s", state)
	return nil
}

func TestStaleScoreDoesNotGradeResubmittedAnswer(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)
	stepID := session.Steps[0].ID

	gate := &gateGateway{
		started:  make(chan int, 2),
		releases: []chan struct{}{make(chan struct{}), make(chan struct{})},
		results: []llm.Evaluation{
			{Score: 95, Feedback: "graded the first answer"},
			{Score: 70, Feedback: "graded the second answer"},
		},
	}
	svc := env.sessions.(*sessionService)
	svc.gateway = gate
	svc.syncScoring = false

	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("first answer")); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-gate.started

	// Resubmit while the first evaluation is still in flight.
	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("second answer")); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	<-gate.started

	// The stale evaluation lands first; it was dispatched for attempt 1 and
	// must not grade the resubmitted answer.
	close(gate.releases[0])
	time.Sleep(50 * time.Millisecond)
	close(gate.releases[1])

	sub := waitForScoringState(t, env, session.ID, stepID, model.ScoringScored)
	if sub.Score == nil || *sub.Score != 70 {
		t.Fatalf("score = %v, want 70 from the second evaluation", sub.Score)
	}
	if sub.Feedback != "graded the second answer" {
		t.Errorf("feedback = %q, want the second evaluation's", sub.Feedback)
	}
	if sub.Answer.Data().Text != "second answer" {
		t.Errorf("answer = %q, want the resubmitted text", sub.Answer.Data().Text)
	}
	if sub.Attempt != 2 {
		t.Errorf("attempt = %d, want 2", sub.Attempt)
	}
}

func TestUpsertLeavesScoredRowUntouched(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)
	stepID := session.Steps[0].ID

	if _, err := env.sessions.SubmitStep(10, session.ID, stepID, answer("final answer")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	repo := repository.NewSubmissionRepository(env.db)
	rows, err := repo.Upsert(&model.StepSubmission{
		SessionID:    session.ID,
		StepID:       stepID,
		Answer:       datatypes.NewJSONType(model.AnswerContent{Text: "overwrite"}),
		SubmittedAt:  env.clock.Now(),
		Attempt:      1,
		ScoringState: model.ScoringPending,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rows != 0 {
		t.Fatalf("rows = %d, want 0 against a scored row", rows)
	}

	current, err := repo.FindBySessionAndStep(session.ID, stepID)
	if err != nil || current == nil {
		t.Fatalf("reload: %v", err)
	}
	if current.Answer.Data().Text != "final answer" || current.ScoringState != model.ScoringScored {
		t.Errorf("scored row was overwritten: %q state %s", current.Answer.Data().Text, current.ScoringState)
	}
}

func TestSessionExpireSweep(t *testing.T) {
	env := newTestEnv(t)
	_, session := env.startedSession(t, 1, 10)
	if _, err := env.sessions.SubmitStep(10, session.ID, session.Steps[0].ID, answer("scored at 70")); err != nil {
		t.Fatalf("submit: %v", err)
	}

	env.clock.Advance(61 * time.Minute)
	swept, err := env.sessions.ExpireSweep(env.clock.Now())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	var fresh model.AssessmentSession
	if err := env.db.First(&fresh, session.ID).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	if fresh.Status != model.SessionAbandoned {
		t.Errorf("status = %q, want ABANDONED", fresh.Status)
	}
	result, err := env.scoring.GetSessionResult(10, session.ID)
	if err != nil {
		t.Fatalf("result after sweep: %v", err)
	}
	if result.OverallScore != 70 {
		t.Errorf("overall = %f, want 70", result.OverallScore)
	}

	if again, err := env.sessions.ExpireSweep(env.clock.Now()); err != nil || again != 0 {
		t.Errorf("second sweep = %d, %v; want 0, nil", again, err)
	}
}
