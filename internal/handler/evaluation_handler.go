package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academia-sur/academy-api/internal/models"
	"github.com/academia-sur/academy-api/internal/service"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
	"github.com/academia-sur/academy-api/pkg/response"
)

// EvaluationHandler exposes evaluation endpoints.
type EvaluationHandler struct {
	evaluations *service.EvaluationService
	enrollments *service.EnrollmentService
}

// NewEvaluationHandler constructs EvaluationHandler.
func NewEvaluationHandler(evaluations *service.EvaluationService, enrollments *service.EnrollmentService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, enrollments: enrollments}
}

// ListByCourse godoc
// @Summary List the evaluations of a course
// @Tags Evaluations
// @Produce json
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/evaluations [get]
func (h *EvaluationHandler) ListByCourse(c *gin.Context) {
	evaluations, err := h.evaluations.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// Create godoc
// @Summary Add an evaluation to a course
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.CreateEvaluationRequest true "Evaluation payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	evaluation, err := h.evaluations.Create(c.Request.Context(), *identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// Complete godoc
// @Summary Mark an evaluation as completed for the caller
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id}/complete [post]
func (h *EvaluationHandler) Complete(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.enrollments.CompleteEvaluation(c.Request.Context(), *identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}
