package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/engir-api/internal/middleware"
	"github.com/noah-isme/engir-api/internal/models"
	appErrors "github.com/noah-isme/engir-api/pkg/errors"
	"github.com/noah-isme/engir-api/pkg/response"
)

func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.PrincipalFrom(c)
}

// pathID parses the :id parameter, writing a 404 for anything that is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.ErrNotFound)
		return 0, false
	}
	return id, true
}

// bindJSON decodes the body into dst, writing a 400 when it is malformed.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// listOptions reads page, limit and ordering. "ordering=-starts_at" sorts descending.
func listOptions(c *gin.Context) models.ListOptions {
	opts := models.ListOptions{
		SortBy:    strings.TrimSpace(c.DefaultQuery("ordering", c.Query("sort"))),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		opts.Page = page
	}
	if size, err := strconv.Atoi(c.Query("limit")); err == nil {
		opts.PageSize = size
	}
	return opts
}

func queryInt64(c *gin.Context, key string) *int64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryBool(c *gin.Context, key string) *bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	default:
		return nil
	}
}
