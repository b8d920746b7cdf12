package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/engir-api/internal/models"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
	"github.com/noah-isme/engir-api/pkg/response"
)

type sessionService interface {
	List(ctx context.Context, principal *models.Principal, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error)
	Get(ctx context.Context, principal *models.Principal, id int64) (*models.SessionDetail, error)
	Create(ctx context.Context, principal *models.Principal, req models.CreateSessionRequest) (*models.SessionDetail, error)
	Update(ctx context.Context, principal *models.Principal, id int64, req models.UpdateSessionRequest) (*models.SessionDetail, error)
	Delete(ctx context.Context, principal *models.Principal, id int64) error
	RegenerateStreamKey(ctx context.Context, principal *models.Principal, id int64) (*models.StreamCredentials, error)
	StartStream(ctx context.Context, principal *models.Principal, id int64) (*models.SessionDetail, error)
	EndStream(ctx context.Context, principal *models.Principal, id int64, req models.EndStreamRequest) (*models.SessionDetail, error)
}

// SessionHandler exposes livestream session endpoints.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param classroom query int false "Filter by classroom"
// @Param status query string false "draft, scheduled, live, completed or cancelled"
// @Param upcoming query bool false "Only sessions starting from now"
// @Param search query string false "Search session title, classroom title or code"
// @Param ordering query string false "starts_at, created_at; prefix with - for descending"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	filter := models.SessionFilter{
		ClassroomID: queryInt64(c, "classroom"),
		Search:      c.Query("search"),
		ListOptions: listOptions(c),
	}
	if upcoming := queryBool(c, "upcoming"); upcoming != nil {
		filter.Upcoming = *upcoming
	}
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		s := models.SessionStatus(status)
		filter.Status = &s
	}

	sessions, pagination, err := h.sessions.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get session
// @Description Stream key, host URL and passcode are only returned to the classroom owner
// @Tags Sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Create godoc
// @Summary Schedule session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update session
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param payload body models.UpdateSessionRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.UpdateSessionRequest
	if !bindJSON(c, &req, "invalid session payload") {
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), principalFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RegenerateStreamKey godoc
// @Summary Rotate stream key
// @Description Issues a new stream key and rebuilds host and playback URLs from it
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id}/regenerate-stream-key [post]
func (h *SessionHandler) RegenerateStreamKey(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	creds, err := h.sessions.RegenerateStreamKey(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, creds, nil)
}

// StartStream godoc
// @Summary Go live
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/start-stream [post]
func (h *SessionHandler) StartStream(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	session, err := h.sessions.StartStream(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// EndStream godoc
// @Summary End stream
// @Description Marks the session completed, optionally storing the recording URL
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Param payload body models.EndStreamRequest false "Recording"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/end-stream [post]
func (h *SessionHandler) EndStream(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req models.EndStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid end stream payload"))
		return
	}
	session, err := h.sessions.EndStream(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
