package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
)

type createAgreementRequest struct {
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Currency    string          `json:"currency"`
	Terms       string          `json:"terms"`
}

type updateAgreementRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Terms       *string `json:"terms"`
}

type addPartyRequest struct {
	ContactID       string          `json:"contact_id"`
	CompanyID       string          `json:"company_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	SplitPercentage decimal.Decimal `json:"split_percentage"`
	Role            string          `json:"role"`
}

type addMilestoneRequest struct {
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency"`
	DueDate     time.Time       `json:"due_date"`
}

type completeMilestoneRequest struct {
	Notes                 string `json:"notes"`
	ReleasedTransactionID string `json:"released_transaction_id"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type attachEscrowRequest struct {
	EscrowAccountID string `json:"escrow_account_id"`
}

type updatePartySplitRequest struct {
	SplitPercentage decimal.Decimal `json:"split_percentage"`
}

type connectPartyAccountRequest struct {
	ConnectedAccountID string `json:"connected_account_id"`
}

type releaseMilestonePayoutRequest struct {
	PartyID        string          `json:"party_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (s *Server) CreateAgreement(c *gin.Context) {
	var req createAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	agreement, err := s.agreementSvc.Create(c.Request.Context(), agreementdomain.CreateRequest{
		OwnerID:     strings.TrimSpace(req.OwnerID),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		TotalValue:  req.TotalValue,
		Currency:    strings.TrimSpace(req.Currency),
		Terms:       strings.TrimSpace(req.Terms),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agreement})
}

func (s *Server) GetAgreement(c *gin.Context) {
	agreement, err := s.agreementSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("agreement_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agreement})
}

func (s *Server) UpdateAgreementDetails(c *gin.Context) {
	var req updateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.UpdateDetails(c.Request.Context(), agreementdomain.UpdateDetailsRequest{
		AgreementID: strings.TrimSpace(c.Param("agreement_id")),
		Title:       req.Title,
		Description: req.Description,
		Terms:       req.Terms,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AddAgreementParty(c *gin.Context) {
	var req addPartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	party, err := s.agreementSvc.AddParty(c.Request.Context(), agreementdomain.AddPartyRequest{
		AgreementID:     strings.TrimSpace(c.Param("agreement_id")),
		ContactID:       strings.TrimSpace(req.ContactID),
		CompanyID:       strings.TrimSpace(req.CompanyID),
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		SplitPercentage: req.SplitPercentage,
		Role:            strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": party})
}

func (s *Server) AcceptAgreement(c *gin.Context) {
	err := s.agreementSvc.AcceptAgreement(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(c.Param("party_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AddAgreementMilestone(c *gin.Context) {
	var req addMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	milestone, err := s.agreementSvc.AddMilestone(c.Request.Context(), agreementdomain.AddMilestoneRequest{
		AgreementID: strings.TrimSpace(c.Param("agreement_id")),
		Description: strings.TrimSpace(req.Description),
		Value:       req.Value,
		Currency:    strings.TrimSpace(req.Currency),
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": milestone})
}

func (s *Server) CompleteAgreementMilestone(c *gin.Context) {
	var req completeMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.CompleteMilestone(c.Request.Context(), agreementdomain.CompleteMilestoneRequest{
		AgreementID:           strings.TrimSpace(c.Param("agreement_id")),
		MilestoneID:           strings.TrimSpace(c.Param("milestone_id")),
		Notes:                 strings.TrimSpace(req.Notes),
		ReleasedTransactionID: strings.TrimSpace(req.ReleasedTransactionID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ActivateAgreement(c *gin.Context) {
	strict := c.Query("strict") == "true"
	if err := s.agreementSvc.Activate(c.Request.Context(), strings.TrimSpace(c.Param("agreement_id")), strict); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CompleteAgreement(c *gin.Context) {
	if err := s.agreementSvc.Complete(c.Request.Context(), strings.TrimSpace(c.Param("agreement_id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) DisputeAgreement(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.Dispute(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(req.Reason),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CancelAgreement(c *gin.Context) {
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.Cancel(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(req.Reason),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) UpdateAgreementPartySplit(c *gin.Context) {
	var req updatePartySplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.UpdatePartySplit(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(c.Param("party_id")),
		req.SplitPercentage,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ConnectAgreementPartyAccount(c *gin.Context) {
	var req connectPartyAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.ConnectPartyAccount(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(c.Param("party_id")),
		strings.TrimSpace(req.ConnectedAccountID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ReleaseAgreementMilestonePayout(c *gin.Context) {
	var req releaseMilestonePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.agreementSvc.ReleaseMilestonePayout(c.Request.Context(), agreementdomain.ReleaseMilestonePayoutRequest{
		AgreementID:    strings.TrimSpace(c.Param("agreement_id")),
		MilestoneID:    strings.TrimSpace(c.Param("milestone_id")),
		PartyID:        strings.TrimSpace(req.PartyID),
		Amount:         req.Amount,
		Description:    strings.TrimSpace(req.Description),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetAgreementSummary(c *gin.Context) {
	summary, err := s.agreementSvc.Summary(c.Request.Context(), strings.TrimSpace(c.Param("agreement_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) ResetAgreementMilestone(c *gin.Context) {
	err := s.agreementSvc.ResetMilestone(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(c.Param("milestone_id")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AttachEscrowToAgreement(c *gin.Context) {
	var req attachEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.agreementSvc.AttachEscrowAccount(c.Request.Context(),
		strings.TrimSpace(c.Param("agreement_id")),
		strings.TrimSpace(req.EscrowAccountID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
