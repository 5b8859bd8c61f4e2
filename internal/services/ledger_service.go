package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"leaderboard/internal/amqp"
	"leaderboard/internal/core"
	"leaderboard/internal/log"
	"leaderboard/internal/observability"
	"leaderboard/internal/storage"
)

// ChangePublisher announces persisted ledger changes to other processes.
type ChangePublisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// LedgerService owns the session ledger. It loads the ledger once, applies
// mutations to a copy and only swaps the copy in after it has been saved.
type LedgerService struct {
	gateway   storage.Gateway
	registry  *core.Registry
	publisher ChangePublisher
	logger    *log.Logger
	events    *log.StructuredLogger

	mu     sync.RWMutex
	ledger *core.Ledger
}

// NewLedgerService creates a service. publisher may be nil when change
// notifications are disabled.
func NewLedgerService(gateway storage.Gateway, registry *core.Registry, publisher ChangePublisher, logger *log.Logger) *LedgerService {
	if registry == nil {
		registry = core.DefaultRegistry()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		gateway:   gateway,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		ledger:    core.NewLedger(),
	}
}

// Load replaces the session ledger with the persisted one.
func (s *LedgerService) Load(ctx context.Context) error {
	started := time.Now()
	l, err := s.gateway.Load(ctx)
	observability.ObservePersistence(log.OpLoad, started)
	if err != nil {
		return wrapPersistence(fmt.Errorf("load ledger: %w", err))
	}

	s.mu.Lock()
	s.ledger = l
	s.mu.Unlock()

	observability.SetRosterSize(len(l.Members))
	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		"members", len(l.Members),
		"weeks", len(l.WeeklyData))
	return nil
}

// Registry returns the category table used for scoring.
func (s *LedgerService) Registry() *core.Registry {
	return s.registry
}

// Snapshot returns a copy of the session ledger.
func (s *LedgerService) Snapshot() *core.Ledger {
	return s.current().Clone()
}

// current returns the session ledger. Mutations never modify a published
// ledger in place, so callers may read it without holding the lock.
func (s *LedgerService) current() *core.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger
}

func (s *LedgerService) AddMember(ctx context.Context, name string) error {
	return s.mutate(ctx, amqp.NewLedgerChangedMessage(amqp.OperationAddMember, name, ""), func(l *core.Ledger) error {
		return l.AddMember(name)
	})
}

func (s *LedgerService) RenameMember(ctx context.Context, oldName, newName string) error {
	msg := amqp.NewLedgerChangedMessage(amqp.OperationRenameMember, oldName, "")
	msg.NewMember = newName
	return s.mutate(ctx, msg, func(l *core.Ledger) error {
		return l.RenameMember(oldName, newName)
	})
}

func (s *LedgerService) RemoveMember(ctx context.Context, name string) error {
	return s.mutate(ctx, amqp.NewLedgerChangedMessage(amqp.OperationRemoveMember, name, ""), func(l *core.Ledger) error {
		return l.RemoveMember(name)
	})
}

// RecordWeeklyCounts replaces a member's counts for a week. Category keys
// must be known to the registry.
func (s *LedgerService) RecordWeeklyCounts(ctx context.Context, week core.WeekKey, member string, counts core.ActivityCount) error {
	if err := s.registry.Validate(counts); err != nil {
		observability.RecordMutation(amqp.OperationRecordCounts, err)
		return err
	}
	msg := amqp.NewLedgerChangedMessage(amqp.OperationRecordCounts, member, week.String())
	return s.mutate(ctx, msg, func(l *core.Ledger) error {
		return l.RecordWeeklyCounts(week, member, counts)
	})
}

// ErrNotificationsDisabled is returned by Resync when no publisher is
// configured, so there is nobody to ask for an export.
var ErrNotificationsDisabled = errors.New("change notifications are disabled")

// Resync asks consumers to re-export the ledger without changing it.
func (s *LedgerService) Resync(ctx context.Context) error {
	if s.publisher == nil {
		return ErrNotificationsDisabled
	}
	return s.publish(ctx, amqp.NewLedgerChangedMessage(amqp.OperationResync, "", ""))
}

// mutate applies fn to a copy of the session ledger and saves it. The copy
// becomes the session ledger only if the save succeeds.
func (s *LedgerService) mutate(ctx context.Context, msg *amqp.LedgerChangedMessage, fn func(*core.Ledger) error) (err error) {
	defer func() { observability.RecordMutation(msg.Operation, err) }()

	s.mu.Lock()
	next := s.ledger.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}

	started := time.Now()
	saveErr := s.gateway.Save(ctx, next)
	observability.ObservePersistence(log.OpSave, started)
	if saveErr != nil {
		s.mu.Unlock()
		s.events.LogError(ctx, "Failed to save ledger", saveErr, log.ComponentLedger, msg.Operation,
			log.NewFields().WithMember(msg.Member).WithWeek(msg.Week))
		return wrapPersistence(fmt.Errorf("save ledger: %w", saveErr))
	}
	s.ledger = next
	s.mu.Unlock()

	observability.SetRosterSize(len(next.Members))
	s.events.LogLedgerChange(ctx, msg.Operation,
		log.NewFields().WithMember(msg.Member).WithNewMember(msg.NewMember).WithWeek(msg.Week))

	if err := s.publish(ctx, msg); err != nil {
		// The ledger is saved; the export catches up on the next resync.
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldMessageID, msg.ID,
			log.FieldOperation, msg.Operation,
			log.FieldError, err)
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Change publisher not configured, skipping notification",
			log.FieldOperation, msg.Operation)
		return nil
	}
	return s.publisher.PublishLedgerChanged(ctx, msg)
}

func wrapPersistence(err error) error {
	if errors.Is(err, storage.ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", storage.ErrPersistence, err)
}

// Members returns the roster in insertion order.
func (s *LedgerService) Members() []string {
	l := s.current()
	return append([]string(nil), l.Members...)
}

// Leaderboard ranks every member by all-time points.
func (s *LedgerService) Leaderboard() ([]core.Standing, core.Summary) {
	standings := core.Leaderboard(s.registry, s.current())
	return standings, core.Summarize(standings)
}

// WeeklyLeaderboard ranks every member by points earned in week.
func (s *LedgerService) WeeklyLeaderboard(week core.WeekKey) []core.Standing {
	return core.WeeklyLeaderboard(s.registry, s.current(), week)
}

// ActiveWeeks lists weeks with recorded activity, newest first.
func (s *LedgerService) ActiveWeeks() []core.WeekKey {
	return core.ActiveWeeks(s.current())
}

func (s *LedgerService) MemberBreakdown(member string) ([]core.CategoryTotal, error) {
	l, err := s.rostered(member)
	if err != nil {
		return nil, err
	}
	return core.MemberBreakdown(s.registry, l, member), nil
}

func (s *LedgerService) MemberWeeklyPoints(member string) ([]core.WeekPoints, error) {
	l, err := s.rostered(member)
	if err != nil {
		return nil, err
	}
	return core.MemberWeeklyPoints(s.registry, l, member), nil
}

func (s *LedgerService) MemberWeeks(member string) ([]core.WeekKey, error) {
	l, err := s.rostered(member)
	if err != nil {
		return nil, err
	}
	return core.MemberWeeks(l, member), nil
}

// Entry is the drill-down view of one member's counts for one week.
type Entry struct {
	Week       core.WeekKey         `json:"week"`
	Member     string               `json:"member"`
	Recorded   bool                 `json:"recorded"`
	Counts     core.ActivityCount   `json:"counts"`
	Categories []core.CategoryTotal `json:"categories"`
	Points     int                  `json:"points"`
}

// Entry returns member's counts for week. An absent entry is reported with
// Recorded false and empty counts.
func (s *LedgerService) Entry(week core.WeekKey, member string) (Entry, error) {
	l, err := s.rostered(member)
	if err != nil {
		return Entry{}, err
	}
	counts, ok := l.Entry(week, member)
	if counts == nil {
		counts = core.ActivityCount{}
	}
	return Entry{
		Week:       week,
		Member:     member,
		Recorded:   ok,
		Counts:     counts,
		Categories: core.EntryBreakdown(s.registry, counts),
		Points:     core.PointsFor(s.registry, counts),
	}, nil
}

func (s *LedgerService) rostered(member string) (*core.Ledger, error) {
	l := s.current()
	if !l.HasMember(member) {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMember, member)
	}
	return l, nil
}
