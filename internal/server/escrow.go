package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
)

type openEscrowAccountRequest struct {
	AgreementID string `json:"agreement_id"`
	OwnerID     string `json:"owner_id"`
	Currency    string `json:"currency"`
}

type escrowDepositRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	Completed      bool            `json:"completed"`
	PaymentRef     string          `json:"payment_ref"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type escrowPayoutRequest struct {
	PartyID        string          `json:"party_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	ApprovalType   string          `json:"approval_type"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type escrowApprovalRequest struct {
	ApprovedBy string `json:"approved_by"`
}

type escrowRejectionRequest struct {
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

type escrowExecutionRequest struct {
	TransferRef string `json:"transfer_ref"`
}

type escrowDisputeRequest struct {
	Reason string `json:"reason"`
}

type connectEscrowAccountRequest struct {
	ConnectedAccountID string `json:"connected_account_id"`
}

func (s *Server) OpenEscrowAccount(c *gin.Context) {
	var req openEscrowAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.escrowSvc.Open(c.Request.Context(), escrowdomain.OpenRequest{
		AgreementID: strings.TrimSpace(req.AgreementID),
		OwnerID:     strings.TrimSpace(req.OwnerID),
		Currency:    strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": account})
}

func (s *Server) GetEscrowAccountByAgreement(c *gin.Context) {
	account, err := s.escrowSvc.GetByAgreement(c.Request.Context(), strings.TrimSpace(c.Param("agreement_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"account":           account,
		"balance":           account.Balance().Amount.String(),
		"available_balance": account.AvailableBalance().Amount.String(),
	}})
}

func (s *Server) RegisterEscrowDeposit(c *gin.Context) {
	var req escrowDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tx, err := s.escrowSvc.RegisterDeposit(c.Request.Context(), escrowdomain.DepositRequest{
		AccountID:      strings.TrimSpace(c.Param("account_id")),
		Amount:         req.Amount,
		Currency:       strings.TrimSpace(req.Currency),
		Description:    strings.TrimSpace(req.Description),
		Completed:      req.Completed,
		PaymentRef:     strings.TrimSpace(req.PaymentRef),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tx})
}

func (s *Server) RequestEscrowPayout(c *gin.Context) {
	var req escrowPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tx, err := s.escrowSvc.RequestPayout(c.Request.Context(), escrowdomain.PayoutRequest{
		AccountID:      strings.TrimSpace(c.Param("account_id")),
		PartyID:        strings.TrimSpace(req.PartyID),
		Amount:         req.Amount,
		Currency:       strings.TrimSpace(req.Currency),
		Description:    strings.TrimSpace(req.Description),
		ApprovalType:   strings.TrimSpace(req.ApprovalType),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tx})
}

func (s *Server) ApproveEscrowPayout(c *gin.Context) {
	var req escrowApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.escrowSvc.ApprovePayout(c.Request.Context(), escrowdomain.ApprovalRequest{
		AccountID:     strings.TrimSpace(c.Param("account_id")),
		TransactionID: strings.TrimSpace(c.Param("transaction_id")),
		ApprovedBy:    strings.TrimSpace(req.ApprovedBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RejectEscrowPayout(c *gin.Context) {
	var req escrowRejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.escrowSvc.RejectPayout(c.Request.Context(), escrowdomain.RejectionRequest{
		AccountID:     strings.TrimSpace(c.Param("account_id")),
		TransactionID: strings.TrimSpace(c.Param("transaction_id")),
		RejectedBy:    strings.TrimSpace(req.RejectedBy),
		Reason:        strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ExecuteEscrowPayout(c *gin.Context) {
	var req escrowExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.escrowSvc.MarkPayoutExecuted(c.Request.Context(), escrowdomain.ExecutionRequest{
		AccountID:     strings.TrimSpace(c.Param("account_id")),
		TransactionID: strings.TrimSpace(c.Param("transaction_id")),
		TransferRef:   strings.TrimSpace(req.TransferRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) DisputeEscrowTransaction(c *gin.Context) {
	var req escrowDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.escrowSvc.MarkTransactionDisputed(c.Request.Context(), escrowdomain.DisputeRequest{
		AccountID:     strings.TrimSpace(c.Param("account_id")),
		TransactionID: strings.TrimSpace(c.Param("transaction_id")),
		Reason:        strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ConnectEscrowAccount(c *gin.Context) {
	var req connectEscrowAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.escrowSvc.ConnectAccount(c.Request.Context(),
		strings.TrimSpace(c.Param("account_id")),
		strings.TrimSpace(req.ConnectedAccountID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) SuspendEscrowAccount(c *gin.Context) {
	if err := s.escrowSvc.Suspend(c.Request.Context(), strings.TrimSpace(c.Param("account_id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CloseEscrowAccount(c *gin.Context) {
	if err := s.escrowSvc.Close(c.Request.Context(), strings.TrimSpace(c.Param("account_id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
