package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skooldesk/skooldesk-api/internal/middleware"
	"github.com/skooldesk/skooldesk-api/internal/models"
)

func actorFromContext(c *gin.Context) models.Actor {
	actor, _ := middleware.CurrentActor(c)
	return actor
}

// pageRequestFromQuery parses the shared paging and ordering query params.
func pageRequestFromQuery(c *gin.Context) models.PageRequest {
	var req models.PageRequest
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "10")); err == nil {
		req.PageSize = size
	}
	req.SortBy = c.Query("sort")
	req.SortOrder = c.Query("order")
	return req
}

func searchFromQuery(c *gin.Context) string {
	return strings.TrimSpace(c.Query("search"))
}
