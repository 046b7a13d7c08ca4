package employer

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/henokg/talentsim/internal/controller"
	"github.com/henokg/talentsim/internal/controller/middleware"
	"github.com/henokg/talentsim/internal/dto"
	"github.com/henokg/talentsim/internal/model"
	"github.com/henokg/talentsim/internal/service"
)

type ResultController struct {
	scoringService service.ScoringService
}

func NewResultController(scoringService service.ScoringService) *ResultController {
	return &ResultController{scoringService: scoringService}
}

// ListResults godoc
// @Summary (Employer) List results for a simulation
// @Description Lists aggregated results for an owned simulation, best overall score first. Filter by review status with the 'status' query param.
// @Tags Employer - Results
// @Produce json
// @Param id path int true "Simulation ID"
// @Param status query string false "Review status filter (PENDING, REVIEWED, SHORTLISTED, REJECTED)"
// @Success 200 {array} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown review status"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /employer/simulations/{id}/results [get]
func (ctrl *ResultController) ListResults(c *gin.Context) {
	simulationID, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}

	var statusFilter *model.ReviewStatus
	if raw := c.Query("status"); raw != "" {
		status := model.ReviewStatus(raw)
		if status != model.ReviewPending && !model.ValidReviewStatus(status) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown review status " + raw, Kind: "VALIDATION"})
			return
		}
		statusFilter = &status
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.scoringService.ListBySimulation(identity.UserID, simulationID, statusFilter)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SetReviewStatus godoc
// @Summary (Employer) Set the review status of a result
// @Description Moves a result between REVIEWED, SHORTLISTED and REJECTED. PENDING is the initial state and cannot be set back.
// @Tags Employer - Results
// @Accept json
// @Produce json
// @Param id path int true "Result ID"
// @Param request body dto.ReviewStatusRequest true "Target review status"
// @Success 200 {object} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown review status"
// @Failure 404 {object} dto.ErrorResponse "Result not found"
// @Router /employer/submissions/{id}/status [patch]
func (ctrl *ResultController) SetReviewStatus(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.scoringService.SetReviewStatus(identity.UserID, id, model.ReviewStatus(req.Status))
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AttachFeedback godoc
// @Summary (Employer) Attach written feedback and manual rubric scores
// @Description Records the employer's written feedback on a result, optionally with manual per-criterion scores. Manual criteria must exist in the simulation rubric. The candidate is notified.
// @Tags Employer - Results
// @Accept json
// @Produce json
// @Param id path int true "Result ID"
// @Param request body dto.EmployerFeedbackRequest true "Feedback text and optional manual scores"
// @Success 200 {object} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse "Unknown rubric criterion or empty feedback"
// @Failure 404 {object} dto.ErrorResponse "Result not found"
// @Router /employer/submissions/{id}/feedback [post]
func (ctrl *ResultController) AttachFeedback(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.EmployerFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.scoringService.AttachEmployerFeedback(identity.UserID, id, req)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
