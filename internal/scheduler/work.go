package scheduler

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/agreement/rules"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

// WorkMilestone identifies one pending milestone whose due date has passed.
type WorkMilestone struct {
	AgreementID snowflake.ID
	MilestoneID snowflake.ID
	OwnerID     snowflake.ID
}

// fetchOverdueForWork collects overdue pending milestones on active
// agreements. Concurrent sweepers may claim the same milestone; the
// version-checked save in MarkMilestoneOverdue settles the race.
func (s *Scheduler) fetchOverdueForWork(ctx context.Context, limit int) ([]WorkMilestone, error) {
	ids, err := s.repo.ListActiveWithPendingMilestones(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	var candidates []WorkMilestone
	for _, id := range ids {
		agreement, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if agreement.Status != agreementdomain.AgreementStatusActive {
			continue
		}
		for _, milestone := range rules.OverdueMilestones(agreement, s.clock) {
			candidates = append(candidates, WorkMilestone{
				AgreementID: agreement.ID,
				MilestoneID: milestone.ID,
				OwnerID:     agreement.OwnerID,
			})
		}
	}
	return candidates, nil
}
