package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// LeadRepository is the record store contract. Lookups of a missing id
// return entity.ErrLeadNotFound.
type LeadRepository interface {
	Find(ctx context.Context, q entity.LeadQuery, order entity.Ordering) ([]*entity.Lead, error)
	// Stream calls fn for each matching lead in order without buffering the
	// whole result. A non-nil error from fn stops the iteration.
	Stream(ctx context.Context, q entity.LeadQuery, order entity.Ordering, fn func(*entity.Lead) error) error
	FindByID(ctx context.Context, id string) (*entity.Lead, error)
	Insert(ctx context.Context, lead *entity.Lead) error
	Update(ctx context.Context, lead *entity.Lead) error
	Delete(ctx context.Context, id string) (bool, error)

	Count(ctx context.Context, q entity.LeadQuery) (int, error)
	CountBy(ctx context.Context, field entity.GroupField) (map[string]int, error)
	SumValue(ctx context.Context, q entity.LeadQuery) (float64, error)
	AverageValue(ctx context.Context, q entity.LeadQuery) (float64, error)
	MonthlyCreated(ctx context.Context, since time.Time, loc *time.Location) ([]entity.MonthlyBucket, error)
}

// UserDirectory resolves user ids to display references. Unknown ids are
// left out of the result.
type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]entity.UserRef, error)
}

// LeadEventPublisher forwards lifecycle events to other systems.
type LeadEventPublisher interface {
	PublishLeadEvent(ctx context.Context, event LeadEvent) error
}

type LeadEvent struct {
	Type      string    `json:"type"`
	LeadID    string    `json:"lead_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Status    string    `json:"status"`
	Value     float64   `json:"value"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLeadEvent(eventType string, lead *entity.Lead, actor entity.UserRef, at time.Time) LeadEvent {
	return LeadEvent{
		Type:      eventType,
		LeadID:    lead.ID,
		Name:      lead.Name,
		Email:     lead.Email,
		Phone:     lead.Phone,
		Company:   lead.Company,
		Status:    string(lead.Status),
		Value:     lead.Value,
		ActorID:   actor.ID,
		Timestamp: at,
	}
}

const (
	EventLeadCreated   = "lead.created"
	EventLeadConverted = "lead.converted"
	EventLeadLost      = "lead.lost"
)

// Metrics receives business counters. A nil Metrics is allowed.
type Metrics interface {
	LeadCreated()
	LeadStatusChanged(status string)
}
