package quota

import (
	"context"
	"fmt"
	"time"

	"legalrisk/backend/internal/plan/domain"
	planrepo "legalrisk/backend/internal/plan/repository"
	usagerepo "legalrisk/backend/internal/usage/repository"
)

// Hardcoded free-tier caps, used when the free plan row is missing or its
// payload omits a key.
var defaultLimits = domain.Limits{
	WeeklyAnalyses: intPtr(1),
	HistoryCap:     intPtr(3),
}

func intPtr(v int) *int { return &v }

// EffectiveLimits is the resolved quota for one user at one instant.
type EffectiveLimits struct {
	PlanCode string
	Limits   domain.Limits
	// ResetsAt is when the current usage window rolls over.
	ResetsAt time.Time
}

// WeekUsage reports consumption against the weekly analysis cap.
// Limit is nil for unlimited plans; Remaining is then nil too.
type WeekUsage struct {
	Used        int
	Limit       *int
	Remaining   *int
	WindowStart time.Time
	WindowEnd   time.Time
}

// Service resolves effective limits from billing state and reads weekly
// usage counters. It never writes; the analysis executor owns the counters.
type Service struct {
	plans planrepo.Repository
	usage usagerepo.Repository
	loc   *time.Location
	now   func() time.Time
}

// NewService builds a quota service computing windows in loc.
func NewService(plans planrepo.Repository, usage usagerepo.Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{plans: plans, usage: usage, loc: loc, now: time.Now}
}

// ResolveEffectiveLimits resolves the user's plan and limits. An effective
// subscription answers from its own payload only: an absent payload or a nil
// field means unlimited. Without a subscription the free plan row applies,
// with keys it omits filled from the hardcoded defaults.
func (s *Service) ResolveEffectiveLimits(ctx context.Context, userID string) (*EffectiveLimits, error) {
	now := s.now()
	_, end := WeekWindow(now, s.loc)

	p, err := s.plans.ActiveSubscriptionPlan(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("resolve subscription plan: %w", err)
	}
	if p != nil {
		limits := domain.Limits{}
		if p.Limits != nil {
			limits = *p.Limits
		}
		return &EffectiveLimits{PlanCode: p.Code, Limits: limits, ResetsAt: end}, nil
	}

	free, err := s.plans.GetByCode(ctx, domain.FreePlanCode)
	if err != nil {
		return nil, fmt.Errorf("resolve free plan: %w", err)
	}
	limits := defaultLimits
	if free != nil && free.Limits != nil {
		if free.Limits.WeeklyAnalyses != nil {
			limits.WeeklyAnalyses = free.Limits.WeeklyAnalyses
		}
		if free.Limits.HistoryCap != nil {
			limits.HistoryCap = free.Limits.HistoryCap
		}
	}
	return &EffectiveLimits{PlanCode: domain.FreePlanCode, Limits: limits, ResetsAt: end}, nil
}

// EffectivePlanCode returns just the plan code, for access-token claims.
func (s *Service) EffectivePlanCode(ctx context.Context, userID string) (string, error) {
	limits, err := s.ResolveEffectiveLimits(ctx, userID)
	if err != nil {
		return "", err
	}
	return limits.PlanCode, nil
}

// WeekUsage reads the user's consumption inside the current window and
// relates it to the effective weekly cap.
func (s *Service) WeekUsage(ctx context.Context, userID string) (*WeekUsage, error) {
	now := s.now()
	start, end := WeekWindow(now, s.loc)

	used, err := s.usage.WeekCount(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("read week usage: %w", err)
	}
	limits, err := s.ResolveEffectiveLimits(ctx, userID)
	if err != nil {
		return nil, err
	}

	u := &WeekUsage{Used: used, WindowStart: start, WindowEnd: end}
	if weekly := limits.Limits.WeeklyAnalyses; weekly != nil {
		u.Limit = intPtr(*weekly)
		rem := *weekly - used
		if rem < 0 {
			rem = 0
		}
		u.Remaining = &rem
	}
	return u, nil
}
