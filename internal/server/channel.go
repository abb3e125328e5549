package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
)

type createChannelRequest struct {
	Name string `json:"name"`
}

// @Summary      Create Channel
// @Description  Register a new money channel
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        request body createChannelRequest true "Create Channel Request"
// @Success      200  {object}  channeldomain.Channel
// @Router       /channels [post]
func (s *Server) CreateChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.channelSvc.Create(c.Request.Context(), channeldomain.CreateChannelRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Channels
// @Description  List all channels
// @Tags         channels
// @Produce      json
// @Success      200  {object}  []channeldomain.Channel
// @Router       /channels [get]
func (s *Server) ListChannels(c *gin.Context) {
	resp, err := s.channelSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Channel
// @Description  Get channel by ID
// @Tags         channels
// @Produce      json
// @Param        id   path      string  true  "Channel ID"
// @Success      200  {object}  channeldomain.Channel
// @Router       /channels/{id} [get]
func (s *Server) GetChannel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.channelSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type setChannelStatusRequest struct {
	Status string `json:"status"`
}

// @Summary      Set Channel Status
// @Description  Activate or deactivate a channel
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id      path  string                   true  "Channel ID"
// @Param        request body  setChannelStatusRequest  true  "Status Request"
// @Success      200  {object}  channeldomain.Channel
// @Router       /channels/{id}/status [patch]
func (s *Server) SetChannelStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req setChannelStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := channeldomain.ChannelStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	resp, err := s.channelSvc.SetStatus(c.Request.Context(), id, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type channelBalanceEntry struct {
	Currency ledgerdomain.Currency `json:"currency"`
	Current  decimal.Decimal       `json:"current"`
	Dynamic  decimal.Decimal       `json:"dynamic"`
}

// @Summary      Get Channel Balance
// @Description  Current and dynamic balance per currency
// @Tags         channels
// @Produce      json
// @Param        id        path   string  true   "Channel ID"
// @Param        currency  query  string  false  "Currency filter (RMB|HKD)"
// @Success      200  {object}  []channelBalanceEntry
// @Router       /channels/{id}/balance [get]
func (s *Server) GetChannelBalance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	currencies := []ledgerdomain.Currency{ledgerdomain.CurrencyRMB, ledgerdomain.CurrencyHKD}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("currency"))); raw != "" {
		currency := ledgerdomain.Currency(raw)
		if currency != ledgerdomain.CurrencyRMB && currency != ledgerdomain.CurrencyHKD {
			AbortWithError(c, ledgerdomain.ErrInvalidCurrency)
			return
		}
		currencies = []ledgerdomain.Currency{currency}
	}

	ctx := c.Request.Context()
	entries := make([]channelBalanceEntry, 0, len(currencies))
	for _, currency := range currencies {
		current, err := s.ledgerSvc.CurrentBalance(ctx, id, currency)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		dynamic, err := s.ledgerSvc.DynamicBalance(ctx, id, currency)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		entries = append(entries, channelBalanceEntry{
			Currency: currency,
			Current:  current,
			Dynamic:  dynamic,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
