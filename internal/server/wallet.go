package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

type creditMovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type keyedCreditMovementRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
	Purpose        string          `json:"purpose"`
}

// GetWalletBalance returns the derived balance. Responses are cached briefly
// since balance reads dominate wallet traffic.
func (s *Server) GetWalletBalance(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Param("owner_id"))
	if cached, ok := s.balanceCache.Get(ownerID); ok {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"owner_id": ownerID, "balance": cached}})
		return
	}

	balance, err := s.walletSvc.Balance(c.Request.Context(), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.balanceCache.Set(ownerID, balance.String(), s.cfg.Cache.BalanceTTL)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"owner_id": ownerID, "balance": balance.String()}})
}

func (s *Server) GrantCredits(c *gin.Context) {
	s.creditMovement(c, s.walletSvc.Grant)
}

func (s *Server) PurchaseCredits(c *gin.Context) {
	s.creditMovement(c, s.walletSvc.Purchase)
}

func (s *Server) ReserveCredits(c *gin.Context) {
	s.keyedCreditMovement(c, s.walletSvc.Reserve)
}

func (s *Server) ConsumeCredits(c *gin.Context) {
	s.keyedCreditMovement(c, s.walletSvc.Consume)
}

func (s *Server) RefundCredits(c *gin.Context) {
	s.keyedCreditMovement(c, s.walletSvc.Refund)
}

func (s *Server) creditMovement(c *gin.Context, op func(context.Context, walletdomain.MovementRequest) (*walletdomain.CreditTransaction, error)) {
	var req creditMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(c.Param("owner_id"))
	tx, err := op(c.Request.Context(), walletdomain.MovementRequest{
		OwnerID: ownerID,
		Amount:  req.Amount,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.balanceCache.Delete(ownerID)
	c.JSON(http.StatusOK, gin.H{"data": tx})
}

func (s *Server) keyedCreditMovement(c *gin.Context, op func(context.Context, walletdomain.KeyedMovementRequest) (*walletdomain.CreditTransaction, error)) {
	var req keyedCreditMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID := strings.TrimSpace(c.Param("owner_id"))
	tx, err := op(c.Request.Context(), walletdomain.KeyedMovementRequest{
		OwnerID:        ownerID,
		Amount:         req.Amount,
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		Purpose:        strings.TrimSpace(req.Purpose),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.balanceCache.Delete(ownerID)
	c.JSON(http.StatusOK, gin.H{"data": tx})
}
