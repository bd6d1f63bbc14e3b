package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	negotiationdomain "github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
)

type openNegotiationRequest struct {
	OwnerID string  `json:"owner_id"`
	Title   string  `json:"title"`
	Context *string `json:"context"`
}

type submitProposalRequest struct {
	PartyID string `json:"party_id"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

type respondProposalRequest struct {
	PartyID string `json:"party_id"`
	Reason  string `json:"reason"`
}

type aiSuggestionRequest struct {
	Instructions string `json:"instructions"`
}

type generateAgreementRequest struct {
	AgreementID string `json:"agreement_id"`
}

func (s *Server) OpenNegotiation(c *gin.Context) {
	var req openNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	session, err := s.negotiationSvc.Open(c.Request.Context(), negotiationdomain.OpenRequest{
		OwnerID: strings.TrimSpace(req.OwnerID),
		Title:   strings.TrimSpace(req.Title),
		Context: req.Context,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) GetNegotiation(c *gin.Context) {
	session, err := s.negotiationSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("session_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (s *Server) SubmitProposal(c *gin.Context) {
	var req submitProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	proposal, err := s.negotiationSvc.SubmitProposal(c.Request.Context(), negotiationdomain.SubmitProposalRequest{
		SessionID: strings.TrimSpace(c.Param("session_id")),
		PartyID:   strings.TrimSpace(req.PartyID),
		Source:    strings.TrimSpace(req.Source),
		Content:   req.Content,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": proposal})
}

func (s *Server) AcceptProposal(c *gin.Context) {
	var req respondProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.negotiationSvc.AcceptProposal(c.Request.Context(), negotiationdomain.RespondRequest{
		SessionID:  strings.TrimSpace(c.Param("session_id")),
		ProposalID: strings.TrimSpace(c.Param("proposal_id")),
		PartyID:    strings.TrimSpace(req.PartyID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RejectProposal(c *gin.Context) {
	var req respondProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.negotiationSvc.RejectProposal(c.Request.Context(), negotiationdomain.RespondRequest{
		SessionID:  strings.TrimSpace(c.Param("session_id")),
		ProposalID: strings.TrimSpace(c.Param("proposal_id")),
		PartyID:    strings.TrimSpace(req.PartyID),
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RequestAiSuggestion(c *gin.Context) {
	var req aiSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.negotiationSvc.RequestAiSuggestion(c.Request.Context(), negotiationdomain.AiSuggestionRequest{
		SessionID:    strings.TrimSpace(c.Param("session_id")),
		Instructions: strings.TrimSpace(req.Instructions),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CloseNegotiation(c *gin.Context) {
	if err := s.negotiationSvc.CloseWithoutAgreement(c.Request.Context(), strings.TrimSpace(c.Param("session_id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GenerateAgreementFromNegotiation(c *gin.Context) {
	var req generateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.negotiationSvc.GenerateAgreement(c.Request.Context(),
		strings.TrimSpace(c.Param("session_id")),
		strings.TrimSpace(req.AgreementID),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
