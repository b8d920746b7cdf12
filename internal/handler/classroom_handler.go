package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/engir-api/internal/middleware"
	"github.com/noah-isme/engir-api/internal/models"
	"github.com/noah-isme/engir-api/internal/service"
	"github.com/noah-isme/engir-api/pkg/response"
)

type classroomService interface {
	List(ctx context.Context, principal *models.Principal, filter models.ClassroomFilter) ([]models.ClassroomDetail, *models.Pagination, error)
	Get(ctx context.Context, principal *models.Principal, id int64) (*models.ClassroomDetail, error)
	GetByCode(ctx context.Context, principal *models.Principal, code string) (*models.ClassroomDetail, error)
	Create(ctx context.Context, principal *models.Principal, req models.CreateClassroomRequest) (*models.ClassroomDetail, error)
	Update(ctx context.Context, principal *models.Principal, id int64, req models.UpdateClassroomRequest) (*models.ClassroomDetail, error)
	Delete(ctx context.Context, principal *models.Principal, id int64) error
}

type rosterExporter interface {
	Roster(ctx context.Context, principal *models.Principal, classroomID int64, format string) (*service.ExportResult, error)
}

// ClassroomHandler exposes classroom endpoints.
type ClassroomHandler struct {
	classrooms classroomService
	exports    rosterExporter
}

// NewClassroomHandler constructs ClassroomHandler.
func NewClassroomHandler(classrooms classroomService, exports rosterExporter) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms, exports: exports}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param teacher query int false "Filter by teacher id"
// @Param is_public query bool false "Filter by visibility"
// @Param mine query bool false "Only classrooms owned by the caller"
// @Param search query string false "Search title, code or teacher name"
// @Param ordering query string false "starts_at, created_at; prefix with - for descending"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	principal := principalFromContext(c)
	filter := models.ClassroomFilter{
		TeacherID:   queryInt64(c, "teacher"),
		IsPublic:    queryBool(c, "is_public"),
		Search:      c.Query("search"),
		ListOptions: listOptions(c),
	}
	if mine := queryBool(c, "mine"); mine != nil && *mine {
		if !principal.IsTeacher() {
			response.JSON(c, http.StatusOK, []models.ClassroomDetail{}, filter.Pagination(0), middleware.ExtractMeta(c))
			return
		}
		id := *principal.TeacherID
		filter.TeacherID = &id
	}

	classrooms, pagination, err := h.classrooms.List(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get classroom
// @Tags Classrooms
// @Produce json
// @Param id path int true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	classroom, err := h.classrooms.Get(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// GetByCode godoc
// @Summary Find classroom by join code
// @Tags Classrooms
// @Produce json
// @Param code path string true "Join code, case insensitive"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/code/{code} [get]
func (h *ClassroomHandler) GetByCode(c *gin.Context) {
	classroom, err := h.classrooms.GetByCode(c.Request.Context(), principalFromContext(c), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Create godoc
// @Summary Create classroom
// @Description The caller becomes the owner. A unique join code is generated.
// @Tags Classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateClassroomRequest true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req models.CreateClassroomRequest
	if !bindJSON(c, &req, "invalid classroom payload") {
		return
	}
	classroom, err := h.classrooms.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, classroom)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Classroom ID"
// @Param payload body models.UpdateClassroomRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id} [patch]
func (h *ClassroomHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateClassroomRequest
	if !bindJSON(c, &req, "invalid classroom payload") {
		return
	}
	classroom, err := h.classrooms.Update(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classroom, nil)
}

// Delete godoc
// @Summary Delete classroom
// @Description Removes the classroom with its enrollments and sessions
// @Tags Classrooms
// @Security BearerAuth
// @Param id path int true "Classroom ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /classes/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.classrooms.Delete(c.Request.Context(), principalFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Export classroom roster
// @Tags Classrooms
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Classroom ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *ClassroomHandler) Roster(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	file, err := h.exports.Roster(c.Request.Context(), principalFromContext(c), id, strings.TrimSpace(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
