package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
	negotiationdomain "github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   negotiationdomain.Repository
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   negotiationdomain.Repository
	outbox *events.Outbox
}

func NewService(p Params) negotiationdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("negotiation.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
	}
}

func (s *Service) Open(ctx context.Context, req negotiationdomain.OpenRequest) (*negotiationdomain.NegotiationSession, error) {
	ownerID, err := parseID(req.OwnerID, negotiationdomain.ErrInvalidSession)
	if err != nil {
		return nil, err
	}
	session, err := negotiationdomain.NewSession(s.genID.Generate(), ownerID, req.Title, req.Context, s.clock)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, session); err != nil {
			return err
		}
		return s.outbox.PublishAll(ctx, tx, session.OwnerID, &session.Recorder)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) GetByID(ctx context.Context, sessionID string) (*negotiationdomain.NegotiationSession, error) {
	id, err := parseID(sessionID, negotiationdomain.ErrSessionNotFound)
	if err != nil {
		return nil, err
	}
	session, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, negotiationdomain.ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *Service) SubmitProposal(ctx context.Context, req negotiationdomain.SubmitProposalRequest) (*negotiationdomain.NegotiationProposal, error) {
	source, err := parseSource(req.Source)
	if err != nil {
		return nil, err
	}
	partyID, err := parseOptionalID(req.PartyID)
	if err != nil {
		return nil, err
	}

	var submitted *negotiationdomain.NegotiationProposal
	err = s.mutate(ctx, req.SessionID, func(session *negotiationdomain.NegotiationSession) error {
		proposal, err := session.SubmitProposal(s.genID.Generate(), partyID, source, req.Content, s.clock)
		if err != nil {
			return err
		}
		submitted = proposal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

func (s *Service) AcceptProposal(ctx context.Context, req negotiationdomain.RespondRequest) error {
	proposalID, err := parseID(req.ProposalID, negotiationdomain.ErrProposalNotFound)
	if err != nil {
		return err
	}
	partyID, err := parseOptionalID(req.PartyID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.SessionID, func(session *negotiationdomain.NegotiationSession) error {
		return session.AcceptProposal(proposalID, partyID, s.clock)
	})
}

func (s *Service) RejectProposal(ctx context.Context, req negotiationdomain.RespondRequest) error {
	proposalID, err := parseID(req.ProposalID, negotiationdomain.ErrProposalNotFound)
	if err != nil {
		return err
	}
	partyID, err := parseOptionalID(req.PartyID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.SessionID, func(session *negotiationdomain.NegotiationSession) error {
		return session.RejectProposal(proposalID, partyID, req.Reason, s.clock)
	})
}

func (s *Service) RequestAiSuggestion(ctx context.Context, req negotiationdomain.AiSuggestionRequest) error {
	return s.mutate(ctx, req.SessionID, func(session *negotiationdomain.NegotiationSession) error {
		return session.RequestAiSuggestion(req.Instructions, s.clock)
	})
}

func (s *Service) CloseWithoutAgreement(ctx context.Context, sessionID string) error {
	return s.mutate(ctx, sessionID, func(session *negotiationdomain.NegotiationSession) error {
		session.CloseWithoutAgreement(s.clock)
		return nil
	})
}

func (s *Service) GenerateAgreement(ctx context.Context, sessionID, agreementID string) error {
	id, err := parseID(agreementID, negotiationdomain.ErrInvalidGeneratedAgreement)
	if err != nil {
		return err
	}
	return s.mutate(ctx, sessionID, func(session *negotiationdomain.NegotiationSession) error {
		return session.GenerateAgreement(id, s.clock)
	})
}

// mutate runs one load-mutate-save unit of work over a session, retrying the
// whole cycle on a lost version race.
func (s *Service) mutate(ctx context.Context, rawSessionID string, op func(*negotiationdomain.NegotiationSession) error) error {
	sessionID, err := parseID(rawSessionID, negotiationdomain.ErrSessionNotFound)
	if err != nil {
		return err
	}
	return persistence.WithRetry(ctx, func(ctx context.Context) error {
		session, err := s.repo.FindByID(ctx, s.db, sessionID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return negotiationdomain.ErrSessionNotFound
			}
			return err
		}
		if err := op(session); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			if err := s.repo.Save(ctx, dbtx, session); err != nil {
				return err
			}
			return s.outbox.PublishAll(ctx, dbtx, session.OwnerID, &session.Recorder)
		})
	})
}

func parseSource(raw string) (negotiationdomain.ProposalSource, error) {
	switch negotiationdomain.ProposalSource(strings.ToLower(strings.TrimSpace(raw))) {
	case negotiationdomain.ProposalSourceParty:
		return negotiationdomain.ProposalSourceParty, nil
	case negotiationdomain.ProposalSourceAI:
		return negotiationdomain.ProposalSourceAI, nil
	default:
		return "", negotiationdomain.ErrInvalidSource
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
		return nil, negotiationdomain.ErrInvalidSession
	}
	return &id, nil
}
