package employer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/internal/controller"
	"github.com/henokg/talentsim/internal/controller/middleware"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/service"
	"github.com/rs/zerolog/log"
)

type InvitationController struct {
	invitationService service.InvitationService
}

func NewInvitationController(invitationService service.InvitationService) *InvitationController {
	return &InvitationController{invitationService: invitationService}
}

// InviteCandidates godoc
// @Summary (Employer) Invite candidates to a simulation
// @Description Creates one tokenized invitation per valid email address. Invalid addresses are reported back without failing the batch. The simulation must be published.
// @Tags Employer - Invitations
// @Accept json
// @Produce json
// @Param id path int true "Simulation ID"
// @Param request body dto.InviteRequest true "Candidate email addresses"
// @Success 201 {object} dto.InviteReport
// @Failure 400 {object} dto.ErrorResponse "Empty email list"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation is not published"
// @Router /employer/simulations/{id}/invite [post]
func (ctrl *InvitationController) InviteCandidates(c *gin.Context) {
	simulationID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("InviteCandidates: failed to bind request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	report, err := ctrl.invitationService.Invite(identity.UserID, simulationID, req)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ListInvitations godoc
// @Summary (Employer) List invitations for a simulation
// @Description Lists every invitation sent for an owned simulation with its current status.
// @Tags Employer - Invitations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {array} dto.InvitationResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /employer/simulations/{id}/invitations [get]
func (ctrl *InvitationController) ListInvitations(c *gin.Context) {
	simulationID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.invitationService.ListBySimulation(identity.UserID, simulationID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResendInvitation godoc
// @Summary (Employer) Resend a pending invitation
// @Description Re-sends the invitation email and pushes the expiry window forward. Only PENDING invitations can be resent.
// @Tags Employer - Invitations
// @Produce json
// @Param id path int true "Invitation ID"
// @Success 200 {object} dto.InvitationResponse
// @Failure 404 {object} dto.ErrorResponse "Invitation not found"
// @Failure 409 {object} dto.ErrorResponse "Invitation is no longer pending"
// @Router /employer/invitations/{id}/resend [post]
func (ctrl *InvitationController) ResendInvitation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.invitationService.Resend(identity.UserID, id)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteInvitation godoc
// @Summary (Employer) Revoke a pending invitation
// @Description Deletes an invitation that has not been accepted yet. Accepted or completed invitations cannot be revoked.
// @Tags Employer - Invitations
// @Param id path int true "Invitation ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Invitation not found"
// @Failure 409 {object} dto.ErrorResponse "Invitation already accepted"
// @Router /employer/invitations/{id} [delete]
func (ctrl *InvitationController) DeleteInvitation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	if err := ctrl.invitationService.Delete(identity.UserID, id); err != nil {
		controller.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
