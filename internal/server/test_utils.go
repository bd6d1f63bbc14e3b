package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type testCleanupRequest struct {
	OwnerIDs []string `json:"owner_ids"`
}

// TestCleanup removes all data belonging to the given owners. Disabled in
// production; e2e suites call it between runs.
func (s *Server) TestCleanup(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req testCleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerIDs := make([]int64, 0, len(req.OwnerIDs))
	for _, raw := range req.OwnerIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			AbortWithError(c, newValidationError("owner_ids", "invalid_owner_id", "owner_ids must be valid identifiers"))
			return
		}
		ownerIDs = append(ownerIDs, int64(id))
	}
	if len(ownerIDs) == 0 {
		AbortWithError(c, newValidationError("owner_ids", "required", "owner_ids is required"))
		return
	}

	if err := s.deleteOwnerData(c.Request.Context(), ownerIDs); err != nil {
		AbortWithError(c, err)
		return
	}
	for _, raw := range req.OwnerIDs {
		s.balanceCache.Delete(strings.TrimSpace(raw))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) deleteOwnerData(ctx context.Context, ownerIDs []int64) error {
	queries := []string{
		`DELETE FROM negotiation_proposals WHERE session_id IN (SELECT id FROM negotiation_sessions WHERE owner_id IN ?)`,
		`DELETE FROM negotiation_sessions WHERE owner_id IN ?`,
		`DELETE FROM escrow_transactions WHERE account_id IN (SELECT id FROM escrow_accounts WHERE owner_id IN ?)`,
		`DELETE FROM escrow_accounts WHERE owner_id IN ?`,
		`DELETE FROM agreement_milestones WHERE agreement_id IN (SELECT id FROM commission_agreements WHERE owner_id IN ?)`,
		`DELETE FROM agreement_parties WHERE agreement_id IN (SELECT id FROM commission_agreements WHERE owner_id IN ?)`,
		`DELETE FROM commission_agreements WHERE owner_id IN ?`,
		`DELETE FROM credit_transactions WHERE owner_id IN ?`,
		`DELETE FROM credit_wallets WHERE owner_id IN ?`,
		`DELETE FROM domain_events WHERE owner_id IN ?`,
	}
	for _, query := range queries {
		if err := s.db.WithContext(ctx).Exec(query, ownerIDs).Error; err != nil {
			return err
		}
	}
	return nil
}
