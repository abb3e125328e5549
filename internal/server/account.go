package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type createAccountRequest struct {
	Name string `json:"name"`
}

// @Summary      Create Account
// @Description  Register a field operator account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body createAccountRequest true "Create Account Request"
// @Success      200  {object}  accountdomain.Account
// @Router       /accounts [post]
func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accountSvc.Create(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Accounts
// @Description  List all field operator accounts
// @Tags         accounts
// @Produce      json
// @Success      200  {object}  []accountdomain.Account
// @Router       /accounts [get]
func (s *Server) ListAccounts(c *gin.Context) {
	resp, err := s.accountSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Account
// @Description  Get account by ID
// @Tags         accounts
// @Produce      json
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountdomain.Account
// @Router       /accounts/{id} [get]
func (s *Server) GetAccount(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.accountSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
