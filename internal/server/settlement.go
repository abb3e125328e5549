package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
)

// @Summary      Preview Settlement
// @Description  Show what settling now would close, without mutating anything
// @Tags         settlements
// @Produce      json
// @Success      200  {object}  settlementdomain.Preview
// @Router       /settlements/preview [get]
func (s *Server) PreviewSettlement(c *gin.Context) {
	resp, err := s.settlementSvc.Preview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type expenseLineRequest struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Kind   string `json:"kind"`
}

type executeSettlementRequest struct {
	Expenses       []expenseLineRequest `json:"expenses"`
	Notes          string               `json:"notes"`
	SettlementDate string               `json:"settlement_date"`
}

// @Summary      Execute Settlement
// @Description  Close the current unsettled batch into an immutable record
// @Tags         settlements
// @Accept       json
// @Produce      json
// @Param        request body executeSettlementRequest true "Execute Settlement Request"
// @Success      200  {object}  settlementdomain.Settlement
// @Router       /settlements [post]
func (s *Server) ExecuteSettlement(c *gin.Context) {
	who, ok := requireActor(c)
	if !ok {
		return
	}

	var req executeSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expenses := make([]settlementdomain.ExpenseLine, 0, len(req.Expenses))
	for _, line := range req.Expenses {
		amount, err := decimal.NewFromString(strings.TrimSpace(line.Amount))
		if err != nil {
			AbortWithError(c, settlementdomain.ErrInvalidExpense)
			return
		}
		expenses = append(expenses, settlementdomain.ExpenseLine{
			Name:   strings.TrimSpace(line.Name),
			Amount: amount,
			Kind:   settlementdomain.ExpenseKind(strings.ToLower(strings.TrimSpace(line.Kind))),
		})
	}

	settlementDate := time.Now().UTC()
	if raw := strings.TrimSpace(req.SettlementDate); raw != "" {
		parsed, err := parseOptionalTime(raw, false)
		if err != nil {
			AbortWithError(c, settlementdomain.ErrInvalidDate)
			return
		}
		settlementDate = *parsed
	}

	resp, err := s.settlementSvc.Execute(c.Request.Context(), settlementdomain.ExecuteRequest{
		Expenses:       expenses,
		Notes:          strings.TrimSpace(req.Notes),
		Actor:          who,
		SettlementDate: settlementDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.ledgerMetrics.ObserveSettlement(int(resp.TransactionCount))
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Settlements
// @Description  Page through settlements, newest sequence first
// @Tags         settlements
// @Produce      json
// @Param        page      query  int  false  "Page"
// @Param        per_page  query  int  false  "Per Page"
// @Success      200  {object}  settlementdomain.ListResponse
// @Router       /settlements [get]
func (s *Server) ListSettlements(c *gin.Context) {
	var query struct {
		Page    int `form:"page"`
		PerPage int `form:"per_page"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.settlementSvc.List(c.Request.Context(), query.Page, query.PerPage)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Settlement
// @Description  Get a settlement with its expense lines
// @Tags         settlements
// @Produce      json
// @Param        id   path      string  true  "Settlement ID"
// @Success      200  {object}  settlementdomain.SettlementDetail
// @Router       /settlements/{id} [get]
func (s *Server) GetSettlement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.settlementSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Capital
// @Description  Current capital from the adjustment ledger
// @Tags         capital
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /capital [get]
func (s *Server) GetCapital(c *gin.Context) {
	amount, err := s.settlementSvc.CurrentCapital(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"capital": amount}})
}

type adjustBalanceRequest struct {
	Amount string `json:"amount"`
	Notes  string `json:"notes"`
}

// @Summary      Adjust Capital
// @Description  Append a manual capital adjustment
// @Tags         capital
// @Accept       json
// @Produce      json
// @Param        request body adjustBalanceRequest true "Adjustment Request"
// @Success      200  {object}  settlementdomain.CapitalAdjustment
// @Router       /capital/adjustments [post]
func (s *Server) AdjustCapital(c *gin.Context) {
	who, ok := requireActor(c)
	if !ok {
		return
	}

	var req adjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid decimal amount"))
		return
	}

	resp, err := s.settlementSvc.AdjustCapital(c.Request.Context(), amount, who, strings.TrimSpace(req.Notes))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get HKD Balance
// @Description  Current HKD balance from the adjustment ledger
// @Tags         capital
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /hkd-balance [get]
func (s *Server) GetHKDBalance(c *gin.Context) {
	amount, err := s.settlementSvc.CurrentHKDBalance(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"hkd_balance": amount}})
}

// @Summary      Adjust HKD Balance
// @Description  Append a manual HKD balance adjustment
// @Tags         capital
// @Accept       json
// @Produce      json
// @Param        request body adjustBalanceRequest true "Adjustment Request"
// @Success      200  {object}  settlementdomain.HKDBalanceAdjustment
// @Router       /hkd-balance/adjustments [post]
func (s *Server) AdjustHKDBalance(c *gin.Context) {
	who, ok := requireActor(c)
	if !ok {
		return
	}

	var req adjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid decimal amount"))
		return
	}

	resp, err := s.settlementSvc.AdjustHKDBalance(c.Request.Context(), amount, who, strings.TrimSpace(req.Notes))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
