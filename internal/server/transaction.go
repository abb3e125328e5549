package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	"github.com/bwmarrin/snowflake"
)

type createTransactionRequest struct {
	UUID      string `json:"uuid"`
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
	AccountID string `json:"account_id"`

	RMBAmount    string `json:"rmb_amount"`
	HKDAmount    string `json:"hkd_amount"`
	ExchangeRate string `json:"exchange_rate"`

	Profit        string `json:"profit"`
	InstantRate   string `json:"instant_rate"`
	InstantProfit string `json:"instant_profit"`

	TransactionDate string `json:"transaction_date"`
	Notes           string `json:"notes"`
}

// @Summary      Create Transaction
// @Description  Record a financial event; a repeated uuid returns the stored row
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body createTransactionRequest true "Create Transaction Request"
// @Success      200  {object}  transactiondomain.Transaction
// @Router       /transactions [post]
func (s *Server) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	channelID, err := parseBodyID(req.ChannelID)
	if err != nil {
		AbortWithError(c, newValidationError("channel_id", "invalid_channel_id", "invalid channel_id"))
		return
	}
	accountID, err := parseBodyID(req.AccountID)
	if err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_account_id", "invalid account_id"))
		return
	}

	amounts, err := parseAmounts(map[string]string{
		"rmb_amount":     req.RMBAmount,
		"hkd_amount":     req.HKDAmount,
		"exchange_rate":  req.ExchangeRate,
		"profit":         req.Profit,
		"instant_rate":   req.InstantRate,
		"instant_profit": req.InstantProfit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	transactionDate := time.Now().UTC()
	if raw := strings.TrimSpace(req.TransactionDate); raw != "" {
		parsed, err := parseOptionalTime(raw, false)
		if err != nil {
			AbortWithError(c, newValidationError("transaction_date", "invalid_transaction_date", "invalid transaction_date"))
			return
		}
		transactionDate = *parsed
	}

	resp, err := s.transactionSvc.Create(c.Request.Context(), transactiondomain.CreateTransactionRequest{
		UUID:            strings.TrimSpace(req.UUID),
		Type:            transactiondomain.Type(strings.ToLower(strings.TrimSpace(req.Type))),
		ChannelID:       channelID,
		AccountID:       accountID,
		RMBAmount:       amounts["rmb_amount"],
		HKDAmount:       amounts["hkd_amount"],
		ExchangeRate:    amounts["exchange_rate"],
		Profit:          amounts["profit"],
		InstantRate:     amounts["instant_rate"],
		InstantProfit:   amounts["instant_profit"],
		TransactionDate: transactionDate,
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ledgerMetrics.IncTransactionRecorded(string(resp.Type))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Transactions
// @Description  Page through transactions with filters
// @Tags         transactions
// @Produce      json
// @Param        channel_id         query  string  false  "Channel ID"
// @Param        settlement_status  query  string  false  "unsettled|settled"
// @Param        from               query  string  false  "From date"
// @Param        to                 query  string  false  "To date"
// @Param        page               query  int     false  "Page"
// @Param        per_page           query  int     false  "Per Page"
// @Success      200  {object}  transactiondomain.ListTransactionsResponse
// @Router       /transactions [get]
func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		ChannelID        string `form:"channel_id"`
		SettlementStatus string `form:"settlement_status"`
		From             string `form:"from"`
		To               string `form:"to"`
		Page             int    `form:"page"`
		PerPage          int    `form:"per_page"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var channelID snowflake.ID
	if strings.TrimSpace(query.ChannelID) != "" {
		parsed, err := parseBodyID(query.ChannelID)
		if err != nil {
			AbortWithError(c, newValidationError("channel_id", "invalid_channel_id", "invalid channel_id"))
			return
		}
		channelID = parsed
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.transactionSvc.List(c.Request.Context(), transactiondomain.ListTransactionsRequest{
		ChannelID:        channelID,
		SettlementStatus: transactiondomain.SettlementStatus(strings.ToLower(strings.TrimSpace(query.SettlementStatus))),
		From:             from,
		To:               to,
		Page:             query.Page,
		PerPage:          query.PerPage,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Transaction
// @Description  Get transaction by ID
// @Tags         transactions
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  transactiondomain.Transaction
// @Router       /transactions/{id} [get]
func (s *Server) GetTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.transactionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTransactionRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// @Summary      Update Transaction
// @Description  Update status or notes of an unsettled transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id      path  string                    true  "Transaction ID"
// @Param        request body  updateTransactionRequest  true  "Update Request"
// @Success      200  {object}  transactiondomain.Transaction
// @Router       /transactions/{id} [patch]
func (s *Server) UpdateTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := transactiondomain.UpdateTransactionRequest{Notes: req.Notes}
	if req.Status != nil {
		status := transactiondomain.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		update.Status = &status
	}

	resp, err := s.transactionSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Transaction
// @Description  Delete an unsettled transaction and revert its ledger effects
// @Tags         transactions
// @Produce      json
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  map[string]string
// @Router       /transactions/{id} [delete]
func (s *Server) DeleteTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.transactionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.ledgerMetrics.IncTransactionDeleted()
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func parseBodyID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, transactiondomain.ErrInvalidChannel
	}
	return id, nil
}

// parseAmounts converts the string money fields; blanks become zero so
// clients only send the fields their transaction type uses.
func parseAmounts(raw map[string]string) (map[string]decimal.Decimal, error) {
	parsed := make(map[string]decimal.Decimal, len(raw))
	for field, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			parsed[field] = decimal.Zero
			continue
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, newValidationError(field, "invalid_amount", "invalid decimal for "+field)
		}
		parsed[field] = amount
	}
	return parsed, nil
}
