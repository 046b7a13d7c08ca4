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

type SimulationController struct {
	simulationService service.SimulationService
}

func NewSimulationController(simulationService service.SimulationService) *SimulationController {
	return &SimulationController{simulationService: simulationService}
}

// CreateSimulation godoc
// @Summary (Employer) Create a new simulation
// @Description Creates a work simulation in DRAFT status with its steps and scoring rubric. Rubric weights must sum to 1.0.
// @Tags Employer - Simulations
// @Accept json
// @Produce json
// @Param simulation body dto.CreateSimulationRequest true "Simulation definition including steps and rubric"
// @Success 201 {object} dto.SimulationResponse
// @Failure 400 {object} dto.ErrorResponse "Validation failed; all violations are listed"
// @Router /employer/simulations [post]
func (ctrl *SimulationController) CreateSimulation(c *gin.Context) {
	var req dto.CreateSimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("CreateSimulation: failed to bind request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.simulationService.Create(identity.UserID, req)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListSimulations godoc
// @Summary (Employer) List own simulations
// @Description Lists every simulation owned by the calling employer, drafts included.
// @Tags Employer - Simulations
// @Produce json
// @Success 200 {array} dto.SimulationResponse
// @Router /employer/simulations [get]
func (ctrl *SimulationController) ListSimulations(c *gin.Context) {
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.simulationService.ListByEmployer(identity.UserID)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSimulation godoc
// @Summary (Employer) Get a simulation
// @Description Fetches one owned simulation with its steps and rubric.
// @Tags Employer - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.SimulationResponse
// @Failure 404 {object} dto.ErrorResponse "Simulation not found or owned by someone else"
// @Router /employer/simulations/{id} [get]
func (ctrl *SimulationController) GetSimulation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.simulationService.Get(identity.UserID, id)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateSimulation godoc
// @Summary (Employer) Update a simulation
// @Description Patches the fields present in the body. Steps, rubric and duration are frozen once the simulation is published.
// @Tags Employer - Simulations
// @Accept json
// @Produce json
// @Param id path int true "Simulation ID"
// @Param patch body dto.UpdateSimulationRequest true "Fields to replace"
// @Success 200 {object} dto.SimulationResponse
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Structural change on a published simulation"
// @Router /employer/simulations/{id} [put]
func (ctrl *SimulationController) UpdateSimulation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	var patch dto.UpdateSimulationRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.simulationService.Update(identity.UserID, id, patch)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PublishSimulation godoc
// @Summary (Employer) Publish a simulation
// @Description Moves a DRAFT simulation to PUBLISHED after re-validating it. Publishing an already published simulation is a no-op.
// @Tags Employer - Simulations
// @Produce json
// @Param id path int true "Simulation ID"
// @Success 200 {object} dto.SimulationResponse
// @Failure 400 {object} dto.ErrorResponse "Simulation is not publishable; violations listed"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Router /employer/simulations/{id}/publish [post]
func (ctrl *SimulationController) PublishSimulation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	resp, err := ctrl.simulationService.Publish(identity.UserID, id)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSimulation godoc
// @Summary (Employer) Delete a simulation
// @Description Soft-deletes a simulation and its steps. Refused while candidates hold live invitations to it.
// @Tags Employer - Simulations
// @Param id path int true "Simulation ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Simulation not found"
// @Failure 409 {object} dto.ErrorResponse "Simulation has active invitations"
// @Router /employer/simulations/{id} [delete]
func (ctrl *SimulationController) DeleteSimulation(c *gin.Context) {
	id, ok := controller.ParseID(c, "id")
	if !ok {
		return
	}
	identity := middleware.CallerIdentity(c)
	if err := ctrl.simulationService.Delete(identity.UserID, id); err != nil {
		controller.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateSteps godoc
// @Summary (Employer) Generate draft steps from a role description
// @Description Asks the AI gateway for candidate assessment steps tailored to a role. The result is a draft payload for CreateSimulation, nothing is persisted.
// @Tags Employer - Simulations
// @Accept json
// @Produce json
// @Param request body dto.GenerateStepsRequest true "Role description"
// @Success 200 {object} dto.GenerateStepsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 502 {object} dto.ErrorResponse "AI provider unavailable"
// @Router /employer/simulations/generate-steps [post]
func (ctrl *SimulationController) GenerateSteps(c *gin.Context) {
	var req dto.GenerateStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body", Kind: "VALIDATION", Violations: []string{err.Error()}})
		return
	}

	resp, err := ctrl.simulationService.GenerateSteps(c.Request.Context(), req)
	if err != nil {
		controller.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
