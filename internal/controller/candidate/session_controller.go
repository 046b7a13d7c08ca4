package candidate

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/internal/controller"
	"github.com/henokg/talentsim/internal/controller/middleware"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/service"
	"github.com/rs/zerolog/log"
)

type SessionController struct {
	invitationService service.InvitationService
	sessionService    service.SessionService
	scoringService    service.ScoringService
}

func NewSessionController(
	invitationService service.InvitationService,
	sessionService service.SessionService,
	scoringService service.ScoringService,
) *SessionController {
	return &SessionController{
		invitationService: invitationService,
		sessionService:    sessionService,
		scoringService:    scoringService,
	}
}

// AcceptInvitation godoc
// @Summary (Candidate) Accept an invitation by token
// @Description Binds the invitation to the calling candidate. Accepting the same invitation twice is a no-op; a token already claimed by someone else is a conflict.
// @Tags Candidate - Sessions
// @Accept json
// @Produce json
// @Param request body dto.AcceptInvitationRequest true "Invitation token"
// @Success 200 {object} dto.InvitationResponse
// @Failure 404 {object} dto.ErrorResponse "Unknown token"
// @Failure 409 {object} dto.ErrorResponse "Token claimed by another candidate"
// @Failure 410 {object} dto.ErrorResponse "Invitation expired"
// @Router /candidate/invitations/accept [post]
func (ctrl *SessionController) AcceptInvitation(c *gin.Context) {
	var req dto.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.invitationService.Accept(identity.UserID, req.Token)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StartSession godoc
// @Summary (Candidate) Start an assessment session
// @Description Opens a timed session for an accepted invitation. The deadline is start time plus the simulation duration. A second attempt requires the simulation to allow retakes.
// @Tags Candidate - Sessions
// @Produce json
// @Param id path int true "Invitation ID"
// @Success 201 {object} dto.SessionResponse
// @Failure 403 {object} dto.ErrorResponse "Invitation belongs to another candidate"
// @Failure 404 {object} dto.ErrorResponse "Invitation not found"
// @Failure 409 {object} dto.ErrorResponse "Invitation not accepted, session already active, or attempts used up"
// @Failure 410 {object} dto.ErrorResponse "Invitation expired"
// @Router /candidate/invitations/{id}/start [post]
func (ctrl *SessionController) StartSession(c *gin.Context) {
	invitationID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.sessionService.Start(identity.UserID, invitationID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetSession godoc
// @Summary (Candidate) Get a session
// @Description Returns the session with its steps, submissions so far and integrity flags. Reading a session past its deadline abandons it first.
// @Tags Candidate - Sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another candidate"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /candidate/sessions/{id} [get]
func (ctrl *SessionController) GetSession(c *gin.Context) {
	sessionID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.sessionService.Get(identity.UserID, sessionID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitStep godoc
// @Summary (Candidate) Submit an answer for a step
// @Description Records the answer for one step of an active session. Multiple choice is scored immediately; other step types are scored by the AI in the background. Resubmitting overwrites an unscored answer; a scored answer is final.
// @Tags Candidate - Sessions
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param step_id path int true "Step ID"
// @Param answer body dto.SubmitStepRequest true "Answer content"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 404 {object} dto.ErrorResponse "Session or step not found"
// @Failure 409 {object} dto.ErrorResponse "Session not active or step already scored"
// @Failure 410 {object} dto.ErrorResponse "Session deadline passed"
// @Router /candidate/sessions/{id}/steps/{step_id}/submit [post]
func (ctrl *SessionController) SubmitStep(c *gin.Context) {
	sessionID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	stepID, ok := controller.ParseID(c, "step_id")
	if !ok {
		return
	}
	var req dto.SubmitStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("SubmitStep: failed to bind request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.sessionService.SubmitStep(identity.UserID, sessionID, stepID, req)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReportViolation godoc
// @Summary (Candidate) Report a proctoring violation
// @Description Appends an integrity flag (tab switch, copy/paste, focus loss) to an active session. Flags never interrupt the attempt.
// @Tags Candidate - Sessions
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param violation body dto.ReportViolationRequest true "Violation type"
// @Success 204 "No Content"
// @Failure 400 {object} dto.ErrorResponse "Unknown violation type"
// @Failure 409 {object} dto.ErrorResponse "Session not active"
// @Router /candidate/sessions/{id}/report-cheat [post]
func (ctrl *SessionController) ReportViolation(c *gin.Context) {
	sessionID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReportViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	if err := ctrl.sessionService.ReportViolation(identity.UserID, sessionID, req); err != nil {
		controller.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CompleteSession godoc
// @Summary (Candidate) Complete a session
// @Description Finishes an active session and returns the aggregated result. Completing an already completed session returns the same result again.
// @Tags Candidate - Sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse "Required steps are still unanswered"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 410 {object} dto.ErrorResponse "Session deadline passed"
// @Router /candidate/sessions/{id}/complete [post]
func (ctrl *SessionController) CompleteSession(c *gin.Context) {
	sessionID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.sessionService.Complete(identity.UserID, sessionID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetResult godoc
// @Summary (Candidate) Get the result of a finished session
// @Description Returns the candidate's own aggregated result once the session is terminal.
// @Tags Candidate - Sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} dto.ResultResponse
// @Failure 404 {object} dto.ErrorResponse "Session or result not found"
// @Failure 409 {object} dto.ErrorResponse "Session still active"
// @Router /candidate/sessions/{id}/result [get]
func (ctrl *SessionController) GetResult(c *gin.Context) {
	sessionID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.scoringService.GetSessionResult(identity.UserID, sessionID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
