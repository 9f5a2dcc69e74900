package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fuelstation/backend/internal/dedup"
	"fuelstation/backend/internal/domain"
	"fuelstation/backend/internal/metrics"
	"fuelstation/backend/internal/store"
)

var (
	ErrForbidden           = errors.New("manager role required")
	ErrDuplicateSubmission = fmt.Errorf("%w: readings already submitted", store.ErrDuplicate)
)

const defaultGuardTTL = 2 * time.Minute

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo     store.Repository
	guard    dedup.Guard
	guardTTL time.Duration
	log      *zap.Logger
	metrics  *metrics.Recorder
	loc      *time.Location
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithLocation sets the timezone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithGuardTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.guardTTL = ttl
		}
	}
}

func New(repo store.Repository, guard dedup.Guard, opts ...Option) *Service {
	if guard == nil {
		guard = dedup.NoopGuard{}
	}
	s := &Service{
		repo:     repo,
		guard:    guard,
		guardTTL: defaultGuardTTL,
		log:      zap.NewNop(),
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Today() domain.Date {
	return domain.NewDate(s.now().In(s.loc))
}

func (s *Service) ListPumps(ctx context.Context) ([]domain.Pump, error) {
	return s.repo.ListPumps(ctx)
}

func (s *Service) CreatePump(ctx context.Context, req domain.PumpCreateRequest) (domain.Pump, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Pump{}, ErrForbidden
	}

	fuel, valid := domain.ParseFuelType(string(req.FuelType))
	if !valid {
		return domain.Pump{}, fmt.Errorf("%w: unknown fuel type %q", store.ErrValidation, req.FuelType)
	}
	name := trimmed(req.Name)
	if name == "" {
		return domain.Pump{}, fmt.Errorf("%w: pump name is required", store.ErrValidation)
	}

	created, err := s.repo.CreatePump(ctx, domain.Pump{Name: name, FuelType: fuel})
	if err != nil {
		return domain.Pump{}, err
	}
	s.log.Info("pump created", zap.Int64("pump_id", created.ID), zap.String("fuel_type", string(fuel)), zap.String("by", actor.Username))
	return *created, nil
}

func parseFuel(raw domain.FuelType) (domain.FuelType, error) {
	fuel, ok := domain.ParseFuelType(string(raw))
	if !ok {
		return "", fmt.Errorf("%w: unknown fuel type %q", store.ErrValidation, raw)
	}
	return fuel, nil
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}
