package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	"github.com/shopspring/decimal"
)

func (s *Server) customerIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, customerdomain.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// GetBalance returns a fresh recomputation without touching stored fields.
func (s *Server) GetBalance(c *gin.Context) {
	id, ok := s.customerIDParam(c)
	if !ok {
		return
	}

	snapshot, err := s.balanceSvc.Recalculate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

func (s *Server) ValidateBalance(c *gin.Context) {
	id, ok := s.customerIDParam(c)
	if !ok {
		return
	}

	result, err := s.balanceSvc.Validate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ReconcileCustomer(c *gin.Context) {
	id, ok := s.customerIDParam(c)
	if !ok {
		return
	}

	// The response carries the figures the reconcile transaction actually
	// persisted, not a re-read that could see newer ledger rows.
	snapshot, err := s.balanceSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

type creditCheckRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) CheckCredit(c *gin.Context) {
	id, ok := s.customerIDParam(c)
	if !ok {
		return
	}

	var req creditCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || amount.IsNegative() {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	decision, err := s.balanceSvc.CheckCredit(c.Request.Context(), id, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}
