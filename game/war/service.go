package war

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hellasmmo/server/audit"
	"github.com/hellasmmo/server/cache"
	"github.com/hellasmmo/server/plugin/hook"
	"go.uber.org/zap"
)

// ChannelWar is the PubSub channel war notifications are published on.
const ChannelWar = "war"

var (
	ErrNotInCity          = errors.New("war: you are not in a city")
	ErrNotAKing           = errors.New("war: only the king may act for the city")
	ErrDeclarationBlocked = errors.New("war: declaration refused")
)

// Event names carried by a Notice.
const (
	EventDeclared       = "declared"
	EventPeaceProposed  = "peace_proposed"
	EventPeaceCancelled = "peace_cancelled"
	EventPeaceMade      = "peace_made"
)

// Notice is published to ChannelWar on every state change. Clients of both
// sides (every member, for a city) should be told.
type Notice struct {
	Event string      `json:"event"`
	From  Belligerent `json:"from"`
	To    Belligerent `json:"to"`
}

// Declaration is the hook payload for BeforeWarDeclare and AfterWarDeclare.
type Declaration struct {
	Actor    string
	Declarer Belligerent
	Target   Belligerent
}

// Cities is the city membership and kingship the service needs.
type Cities interface {
	CityOf(player string) (string, bool)
	IsKing(player string) bool
}

// Auditor records war actions.
type Auditor interface {
	Log(entry audit.AuditEntry)
}

// Service applies player war commands to the ledger and tells everyone involved.
type Service struct {
	ledger  *Ledger
	cities  Cities
	pubsub  cache.PubSub
	auditor Auditor
	hooks   *hook.HookCenter
	logger  *zap.Logger
}

// NewService creates a Service. auditor and hooks may be nil.
func NewService(ledger *Ledger, cities Cities, ps cache.PubSub, auditor Auditor, hooks *hook.HookCenter, logger *zap.Logger) *Service {
	return &Service{
		ledger:  ledger,
		cities:  cities,
		pubsub:  ps,
		auditor: auditor,
		hooks:   hooks,
		logger:  logger,
	}
}

// Ledger returns the underlying ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

// ActingAs resolves the belligerent a player acts as. Acting as a city requires
// membership and kingship.
func (s *Service) ActingAs(player string, asCity bool) (Belligerent, error) {
	if !asCity {
		return PlayerNamed(player), nil
	}
	city, ok := s.cities.CityOf(player)
	if !ok {
		return Belligerent{}, ErrNotInCity
	}
	if !s.cities.IsKing(player) {
		return Belligerent{}, ErrNotAKing
	}
	return CityNamed(city), nil
}

// Declare starts a war between the actor's identity and target.
func (s *Service) Declare(ctx context.Context, actor string, asCity bool, target Belligerent) error {
	declarer, err := s.ActingAs(actor, asCity)
	if err != nil {
		return err
	}
	if declarer == target {
		return ErrSelfWar
	}
	if s.ledger.IsAtWar(declarer, target) {
		return ErrAlreadyAtWar
	}

	decl := Declaration{Actor: actor, Declarer: declarer, Target: target}
	if s.hooks != nil {
		if _, err := s.hooks.Trigger(ctx, hook.BeforeWarDeclare, decl); errors.Is(err, hook.ErrInterrupt) {
			s.logger.Info("war declaration blocked by hook",
				zap.String("declarer", declarer.String()),
				zap.String("target", target.String()))
			return ErrDeclarationBlocked
		}
	}

	if !s.ledger.Declare(declarer, target) {
		return ErrAlreadyAtWar
	}
	s.logger.Info("war declared",
		zap.String("actor", actor),
		zap.String("declarer", declarer.String()),
		zap.String("target", target.String()))
	s.record(ctx, actor, audit.ActionWarDeclare, declarer, target)
	s.publish(ctx, Notice{Event: EventDeclared, From: declarer, To: target})
	if s.hooks != nil {
		_, _ = s.hooks.Trigger(ctx, hook.AfterWarDeclare, decl)
	}
	return nil
}

// SueForPeace offers peace to enemy.
func (s *Service) SueForPeace(ctx context.Context, actor string, asCity bool, enemy Belligerent) error {
	proposer, err := s.ActingAs(actor, asCity)
	if err != nil {
		return err
	}
	if err := s.ledger.ProposePeace(proposer, enemy); err != nil {
		return err
	}
	s.logger.Info("peace proposed",
		zap.String("proposer", proposer.String()),
		zap.String("enemy", enemy.String()))
	s.record(ctx, actor, audit.ActionPeacePropose, proposer, enemy)
	s.publish(ctx, Notice{Event: EventPeaceProposed, From: proposer, To: enemy})
	return nil
}

// CancelPeaceOffer withdraws the actor's own peace offer to enemy.
func (s *Service) CancelPeaceOffer(ctx context.Context, actor string, asCity bool, enemy Belligerent) error {
	proposer, err := s.ActingAs(actor, asCity)
	if err != nil {
		return err
	}
	if !s.ledger.CancelPeaceOffer(proposer, enemy) {
		return ErrNoPeaceOffer
	}
	s.logger.Info("peace offer cancelled",
		zap.String("proposer", proposer.String()),
		zap.String("enemy", enemy.String()))
	s.record(ctx, actor, audit.ActionPeaceCancel, proposer, enemy)
	s.publish(ctx, Notice{Event: EventPeaceCancelled, From: proposer, To: enemy})
	return nil
}

// AcceptPeace accepts proposer's outstanding offer, ending the war.
func (s *Service) AcceptPeace(ctx context.Context, actor string, asCity bool, proposer Belligerent) error {
	accepter, err := s.ActingAs(actor, asCity)
	if err != nil {
		return err
	}
	if err := s.ledger.AcceptPeace(accepter, proposer); err != nil {
		return err
	}
	s.logger.Info("peace made",
		zap.String("accepter", accepter.String()),
		zap.String("proposer", proposer.String()))
	s.record(ctx, actor, audit.ActionPeaceAccept, accepter, proposer)
	s.publish(ctx, Notice{Event: EventPeaceMade, From: accepter, To: proposer})
	if s.hooks != nil {
		_, _ = s.hooks.Trigger(ctx, hook.AfterPeaceMade, NewWar(accepter, proposer))
	}
	return nil
}

func (s *Service) publish(ctx context.Context, n Notice) {
	if s.pubsub == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("marshal war notice", zap.Error(err))
		return
	}
	if err := s.pubsub.Publish(ctx, ChannelWar, string(payload)); err != nil {
		s.logger.Warn("publish war notice failed",
			zap.String("event", n.Event),
			zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, actor, action string, as, target Belligerent) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(audit.AuditEntry{
		TraceID: audit.TraceIDFrom(ctx),
		Actor:   actor,
		Action:  action,
		Target:  target.String(),
		Request: map[string]string{"as": as.String()},
	})
}
