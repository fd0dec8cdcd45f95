package domain

import "time"

// Limits is a plan's quota payload. A nil field means no limit for the
// corresponding cap, never zero.
type Limits struct {
	WeeklyAnalyses *int `json:"weekly_free_analyses,omitempty"`
	HistoryCap     *int `json:"history_cap,omitempty"`
}

// Plan is a named quota template. Limits is nil when the plan defines no
// limits payload at all.
type Plan struct {
	ID        int64
	Code      string
	Limits    *Limits
	Active    bool
	CreatedAt time.Time
}

// FreePlanCode is the fallback plan used when a user has no effective subscription.
const FreePlanCode = "free"

// Subscription links a user to a plan. At most one subscription is effective
// at a given instant: status active/in_trial and the validity window (when
// set) containing the instant; ties break on newest CreatedAt.
type Subscription struct {
	ID                 string
	UserID             string
	PlanID             int64
	Status             Status
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CreatedAt          time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInTrial  Status = "in_trial"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)
