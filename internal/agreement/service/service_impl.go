package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/agreement/rules"
	"github.com/caiohomem/assistente-sub001/internal/clock"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/money"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   agreementdomain.Repository
	Outbox *events.Outbox
	Escrow escrowdomain.Service
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   agreementdomain.Repository
	outbox *events.Outbox
	escrow escrowdomain.Service
}

func NewService(p Params) agreementdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("agreement.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
		escrow: p.Escrow,
	}
}

func (s *Service) Create(ctx context.Context, req agreementdomain.CreateRequest) (*agreementdomain.CommissionAgreement, error) {
	ownerID, err := parseID(req.OwnerID, agreementdomain.ErrInvalidAgreement)
	if err != nil {
		return nil, err
	}
	totalValue, err := money.New(req.TotalValue, req.Currency)
	if err != nil {
		return nil, agreementdomain.ErrInvalidTotalValue
	}

	agreement, err := agreementdomain.NewAgreement(s.genID.Generate(), ownerID, req.Title, req.Description, totalValue, req.Terms, s.clock)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, agreement); err != nil {
			return err
		}
		return s.outbox.PublishAll(ctx, tx, agreement.OwnerID, &agreement.Recorder)
	})
	if err != nil {
		return nil, err
	}
	return agreement, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*agreementdomain.CommissionAgreement, error) {
	agreementID, err := parseID(id, agreementdomain.ErrAgreementNotFound)
	if err != nil {
		return nil, err
	}
	agreement, err := s.repo.FindByID(ctx, s.db, agreementID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, agreementdomain.ErrAgreementNotFound
		}
		return nil, err
	}
	return agreement, nil
}

func (s *Service) AddParty(ctx context.Context, req agreementdomain.AddPartyRequest) (*agreementdomain.AgreementParty, error) {
	split, err := money.NewPercentage(req.SplitPercentage)
	if err != nil {
		return nil, agreementdomain.ErrInvalidSplit
	}
	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	contactID, err := parseOptionalID(req.ContactID)
	if err != nil {
		return nil, agreementdomain.ErrInvalidAgreement
	}
	companyID, err := parseOptionalID(req.CompanyID)
	if err != nil {
		return nil, agreementdomain.ErrInvalidAgreement
	}

	var added *agreementdomain.AgreementParty
	err = s.mutate(ctx, req.AgreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		party, err := agreement.AddParty(s.genID.Generate(), contactID, companyID, req.Name, req.Email, split, role, s.clock)
		if err != nil {
			return err
		}
		added = party
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Service) AcceptAgreement(ctx context.Context, agreementID, partyID string) error {
	id, err := parseID(partyID, agreementdomain.ErrPartyNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.AcceptAgreement(id, s.clock)
	})
}

func (s *Service) AddMilestone(ctx context.Context, req agreementdomain.AddMilestoneRequest) (*agreementdomain.Milestone, error) {
	value, err := money.New(req.Value, req.Currency)
	if err != nil {
		return nil, agreementdomain.ErrInvalidMilestoneValue
	}

	var added *agreementdomain.Milestone
	err = s.mutate(ctx, req.AgreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		milestone, err := agreement.AddMilestone(s.genID.Generate(), req.Description, value, req.DueDate, s.clock)
		if err != nil {
			return err
		}
		added = milestone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Service) CompleteMilestone(ctx context.Context, req agreementdomain.CompleteMilestoneRequest) error {
	milestoneID, err := parseID(req.MilestoneID, agreementdomain.ErrMilestoneNotFound)
	if err != nil {
		return err
	}
	var releasedTxID *snowflake.ID
	if strings.TrimSpace(req.ReleasedTransactionID) != "" {
		id, err := parseID(req.ReleasedTransactionID, agreementdomain.ErrInvalidAgreement)
		if err != nil {
			return err
		}
		releasedTxID = &id
	}
	return s.mutate(ctx, req.AgreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.CompleteMilestone(milestoneID, req.Notes, releasedTxID, s.clock)
	})
}

func (s *Service) MarkMilestoneOverdue(ctx context.Context, agreementID, milestoneID string) error {
	id, err := parseID(milestoneID, agreementdomain.ErrMilestoneNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.MarkMilestoneOverdue(id, s.clock)
	})
}

// Activate brings a draft into force. Strict mode additionally requires the
// splits to close at exactly 100 and the milestones to cover the full total.
func (s *Service) Activate(ctx context.Context, agreementID string, strict bool) error {
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		if strict {
			if err := rules.EnsureCanActivateStrict(agreement); err != nil {
				return err
			}
		}
		return agreement.Activate(s.clock)
	})
}

func (s *Service) Complete(ctx context.Context, agreementID string) error {
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.Complete(s.clock)
	})
}

func (s *Service) Dispute(ctx context.Context, agreementID, reason string) error {
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.Dispute(reason, s.clock)
	})
}

func (s *Service) Cancel(ctx context.Context, agreementID, reason string) error {
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.Cancel(reason, s.clock)
	})
}

func (s *Service) AttachEscrowAccount(ctx context.Context, agreementID, escrowAccountID string) error {
	id, err := parseID(escrowAccountID, agreementdomain.ErrInvalidEscrowAccount)
	if err != nil {
		return err
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.AttachEscrowAccount(id, s.clock)
	})
}

func (s *Service) UpdateDetails(ctx context.Context, req agreementdomain.UpdateDetailsRequest) error {
	return s.mutate(ctx, req.AgreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		agreement.UpdateDetails(req.Title, req.Description, req.Terms, s.clock)
		return nil
	})
}

func (s *Service) UpdatePartySplit(ctx context.Context, agreementID, partyID string, rawSplit decimal.Decimal) error {
	id, err := parseID(partyID, agreementdomain.ErrPartyNotFound)
	if err != nil {
		return err
	}
	split, err := money.NewPercentage(rawSplit)
	if err != nil {
		return agreementdomain.ErrInvalidSplit
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.UpdatePartySplit(id, split, s.clock)
	})
}

func (s *Service) ConnectPartyAccount(ctx context.Context, agreementID, partyID, connectedAccountID string) error {
	id, err := parseID(partyID, agreementdomain.ErrPartyNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.ConnectPartyAccount(id, connectedAccountID, s.clock)
	})
}

// ReleaseMilestonePayout requests an escrow payout for a completed milestone,
// picking the approval path from the release's share of the agreement total.
// Automatic releases are approved on the spot; the escrow transaction is then
// linked back to the milestone.
func (s *Service) ReleaseMilestonePayout(ctx context.Context, req agreementdomain.ReleaseMilestonePayoutRequest) (*agreementdomain.MilestonePayoutResult, error) {
	agreementID, err := parseID(req.AgreementID, agreementdomain.ErrAgreementNotFound)
	if err != nil {
		return nil, err
	}
	milestoneID, err := parseID(req.MilestoneID, agreementdomain.ErrMilestoneNotFound)
	if err != nil {
		return nil, err
	}

	agreement, err := s.repo.FindByID(ctx, s.db, agreementID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, agreementdomain.ErrAgreementNotFound
		}
		return nil, err
	}

	var milestone *agreementdomain.Milestone
	for i := range agreement.Milestones {
		if agreement.Milestones[i].ID == milestoneID {
			milestone = &agreement.Milestones[i]
			break
		}
	}
	if milestone == nil {
		return nil, agreementdomain.ErrMilestoneNotFound
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = milestone.Value
	}
	requested, err := money.New(amount, milestone.Currency)
	if err != nil {
		return nil, agreementdomain.ErrInvalidMilestoneValue
	}
	if err := rules.EnsureMilestoneEligibleForPayout(agreement, milestone, requested); err != nil {
		return nil, err
	}
	if agreement.EscrowAccountID == nil {
		return nil, agreementdomain.ErrEscrowNotAttached
	}

	account, err := s.escrow.GetByAgreement(ctx, agreement.ID.String())
	if err != nil {
		return nil, err
	}
	if err := rules.EnsureEscrowCoverage(account, requested); err != nil {
		return nil, err
	}
	policy, err := rules.DetermineApprovalPolicy(agreement, requested)
	if err != nil {
		return nil, err
	}

	tx, err := s.escrow.RequestPayout(ctx, escrowdomain.PayoutRequest{
		AccountID:      account.ID.String(),
		PartyID:        req.PartyID,
		Amount:         requested.Amount,
		Currency:       requested.Currency,
		Description:    req.Description,
		ApprovalType:   string(policy),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	if policy == escrowdomain.ApprovalTypeAutomatic {
		if err := s.escrow.ApprovePayout(ctx, escrowdomain.ApprovalRequest{
			AccountID:     account.ID.String(),
			TransactionID: tx.ID.String(),
			ApprovedBy:    agreement.OwnerID.String(),
		}); err != nil {
			return nil, err
		}
	}

	if err := s.mutate(ctx, req.AgreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.RecordMilestonePayout(milestoneID, tx.ID, s.clock)
	}); err != nil {
		return nil, err
	}

	s.log.Info("milestone payout released",
		zap.String("agreement_id", agreement.ID.String()),
		zap.String("milestone_id", milestoneID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.String("approval_type", string(policy)),
	)
	return &agreementdomain.MilestonePayoutResult{
		TransactionID: tx.ID.String(),
		ApprovalType:  string(policy),
	}, nil
}

// Summary rolls up an agreement's progress: how much of the total is still
// unreleased and which pending milestones have slipped past their due date.
func (s *Service) Summary(ctx context.Context, agreementID string) (*agreementdomain.AgreementSummary, error) {
	agreement, err := s.GetByID(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	outstanding := rules.OutstandingValue(agreement)
	overdue := rules.OverdueMilestones(agreement, s.clock)
	if overdue == nil {
		overdue = []agreementdomain.Milestone{}
	}
	return &agreementdomain.AgreementSummary{
		AgreementID:       agreement.ID.String(),
		Status:            agreement.Status,
		TotalValue:        agreement.TotalValue,
		OutstandingValue:  outstanding.Amount,
		Currency:          agreement.Currency,
		OverdueMilestones: overdue,
	}, nil
}

func (s *Service) ResetMilestone(ctx context.Context, agreementID, milestoneID string) error {
	id, err := parseID(milestoneID, agreementdomain.ErrMilestoneNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, agreementID, func(agreement *agreementdomain.CommissionAgreement) error {
		return agreement.ResetMilestone(id, s.clock)
	})
}

// mutate runs one load-mutate-save unit of work over an agreement, retrying
// the whole cycle on a lost version race.
func (s *Service) mutate(ctx context.Context, rawAgreementID string, op func(*agreementdomain.CommissionAgreement) error) error {
	agreementID, err := parseID(rawAgreementID, agreementdomain.ErrAgreementNotFound)
	if err != nil {
		return err
	}
	return persistence.WithRetry(ctx, func(ctx context.Context) error {
		agreement, err := s.repo.FindByID(ctx, s.db, agreementID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return agreementdomain.ErrAgreementNotFound
			}
			return err
		}
		if err := op(agreement); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			if err := s.repo.Save(ctx, dbtx, agreement); err != nil {
				return err
			}
			return s.outbox.PublishAll(ctx, dbtx, agreement.OwnerID, &agreement.Recorder)
		})
	})
}

func parseRole(raw string) (agreementdomain.PartyRole, error) {
	switch agreementdomain.PartyRole(strings.ToLower(strings.TrimSpace(raw))) {
	case agreementdomain.PartyRoleBroker:
		return agreementdomain.PartyRoleBroker, nil
	case agreementdomain.PartyRoleSeller:
		return agreementdomain.PartyRoleSeller, nil
	case agreementdomain.PartyRoleBuyer:
		return agreementdomain.PartyRoleBuyer, nil
	case agreementdomain.PartyRoleIntermediary:
		return agreementdomain.PartyRoleIntermediary, nil
	default:
		return "", agreementdomain.ErrInvalidRole
	}
}

func parseID(raw string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func parseOptionalID(raw string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil || id == 0 {
		return nil, agreementdomain.ErrInvalidAgreement
	}
	return &id, nil
}
