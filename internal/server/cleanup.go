package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	cleanupdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup/domain"
)

type runCleanupRequest struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Categories []string `json:"categories"`
}

// @Summary      Run Cleanup
// @Description  Cascading deletion of historical data within a time range
// @Tags         cleanup
// @Accept       json
// @Produce      json
// @Param        request body runCleanupRequest true "Cleanup Request"
// @Success      200  {object}  cleanupdomain.Result
// @Router       /cleanup [post]
func (s *Server) RunCleanup(c *gin.Context) {
	who, ok := requireActor(c)
	if !ok {
		return
	}

	var req runCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(req.From, false)
	if err != nil || from == nil {
		AbortWithError(c, cleanupdomain.ErrInvalidTimeRange)
		return
	}
	to, err := parseOptionalTime(req.To, true)
	if err != nil || to == nil {
		AbortWithError(c, cleanupdomain.ErrInvalidTimeRange)
		return
	}

	categories := make([]cleanupdomain.Category, 0, len(req.Categories))
	for _, raw := range req.Categories {
		categories = append(categories, cleanupdomain.Category(strings.ToLower(strings.TrimSpace(raw))))
	}

	resp, err := s.cleanupSvc.Run(c.Request.Context(), cleanupdomain.Options{
		From:       *from,
		To:         *to,
		Categories: categories,
	}, who)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
