package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Dashboard Statistics
// @Description  Live counters over the unsettled population
// @Tags         statistics
// @Produce      json
// @Success      200  {object}  statisticsdomain.CurrentStatistic
// @Router       /statistics/dashboard [get]
func (s *Server) GetDashboardStatistics(c *gin.Context) {
	resp, err := s.statisticsSvc.DashboardSnapshot(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ledgerMetrics.SetUnsettledBacklog(resp.TransactionCount)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Channel Statistics
// @Description  Live counters for one channel's unsettled transactions
// @Tags         statistics
// @Produce      json
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  statisticsdomain.CurrentStatistic
// @Router       /channels/{id}/statistics [get]
func (s *Server) GetChannelStatistics(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.statisticsSvc.ChannelSnapshot(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
