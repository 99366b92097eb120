package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/academia-sur/academy-api/internal/models"
	"github.com/academia-sur/academy-api/internal/service"
	appErrors "github.com/academia-sur/academy-api/pkg/errors"
	"github.com/academia-sur/academy-api/pkg/response"
)

// CourseHandler exposes the course catalog endpoints.
type CourseHandler struct {
	courses     *service.CourseService
	enrollments *service.EnrollmentService
	exports     *service.ExportService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService, enrollments *service.EnrollmentService, exports *service.ExportService) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments, exports: exports}
}

// List godoc
// @Summary List courses for the caller's role
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.courses.List(c.Request.Context(), *identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListAvailable godoc
// @Summary List courses the caller can still enroll in
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/available [get]
func (h *CourseHandler) ListAvailable(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.courses.ListAvailable(c.Request.Context(), *identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListEnrolled godoc
// @Summary List the caller's enrolled courses with progress
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/enrolled [get]
func (h *CourseHandler) ListEnrolled(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, err := h.courses.ListEnrolled(c.Request.Context(), *identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get a course with its teacher snapshot
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	item, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create a course owned by the caller
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.courses.Create(c.Request.Context(), *identity, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Course payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	course, err := h.courses.Update(c.Request.Context(), *identity, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course and its enrollments
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 204
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.courses.Delete(c.Request.Context(), *identity, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Enroll godoc
// @Summary Enroll the caller into a course
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /courses/enroll/{id} [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), *identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Roster godoc
// @Summary Export the course roster as CSV
// @Tags Courses
// @Produce text/csv
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 200 {string} string "CSV payload"
// @Router /courses/{id}/roster [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.exports.RosterCSV(c.Request.Context(), *identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// Certificate godoc
// @Summary Download a completion certificate PDF
// @Tags Courses
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Security BearerAuth
// @Success 200 {string} string "PDF payload"
// @Router /courses/{id}/certificate [get]
func (h *CourseHandler) Certificate(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, filename, err := h.exports.CompletionCertificate(c.Request.Context(), *identity, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}
