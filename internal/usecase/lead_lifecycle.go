package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type LeadLifecycleUseCase struct {
	Repo      LeadRepository
	Users     UserDirectory
	Publisher LeadEventPublisher
	Metrics   Metrics
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time
}

func NewLeadLifecycleUseCase(
	repo LeadRepository,
	users UserDirectory,
	publisher LeadEventPublisher,
	metrics Metrics,
	loc *time.Location,
	logger *zap.Logger,
) *LeadLifecycleUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &LeadLifecycleUseCase{
		Repo:      repo,
		Users:     users,
		Publisher: publisher,
		Metrics:   metrics,
		Logger:    logger,
		Location:  loc,
		Now:       time.Now,
	}
}

func (uc *LeadLifecycleUseCase) Create(ctx context.Context, input CreateLeadInput, actor entity.UserRef) (*entity.Lead, error) {
	normalizeCreateInput(&input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := uc.Now()
	lead := entity.NewLead(input.Name, input.Email, actor, now)
	lead.Phone = input.Phone
	lead.Company = input.Company
	lead.Tags = input.Tags
	if input.Source != "" {
		lead.Source = entity.Source(input.Source)
	}
	if input.Status != "" {
		lead.Status = entity.Status(input.Status)
		if lead.Status == entity.StatusContacted {
			lead.LastContactedAt = &now
		}
	}
	if input.Priority != "" {
		lead.Priority = entity.Priority(input.Priority)
	}
	if input.Value != nil {
		lead.Value = *input.Value
	}
	if input.FollowUpDate != nil {
		lead.FollowUpDate = input.FollowUpDate.Ptr()
	}
	if input.AssignedTo != "" {
		lead.AssignedTo = &entity.UserRef{ID: input.AssignedTo}
	}

	if err := uc.Repo.Insert(ctx, lead); err != nil {
		return nil, &StoreError{Op: "insert lead", Err: err}
	}

	uc.Logger.Info("lead created",
		zap.String("lead_id", lead.ID),
		zap.String("actor_id", actor.ID),
		zap.String("status", string(lead.Status)),
	)
	if uc.Metrics != nil {
		uc.Metrics.LeadCreated()
	}
	uc.publish(ctx, EventLeadCreated, lead, actor)

	return lead, nil
}

// Update applies a partial patch. Only status, priority and name changes
// are recorded in the activity log.
func (uc *LeadLifecycleUseCase) Update(ctx context.Context, id string, input UpdateLeadInput, actor entity.UserRef) (*entity.Lead, error) {
	normalizeUpdateInput(&input)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	lead, err := loadLead(ctx, uc.Repo, id)
	if err != nil {
		return nil, err
	}

	now := uc.Now()
	oldStatus := lead.Status
	var changes []string

	if input.Status != nil {
		next := entity.Status(*input.Status)
		if next != lead.Status {
			changes = append(changes, fmt.Sprintf("Status: %s → %s", lead.Status, next))
		}
		lead.Status = next
		if next == entity.StatusContacted && lead.LastContactedAt == nil {
			lead.LastContactedAt = &now
		}
	}
	if input.Priority != nil {
		next := entity.Priority(*input.Priority)
		if next != lead.Priority.OrDefault() {
			changes = append(changes, fmt.Sprintf("Priority: %s → %s", lead.Priority.OrDefault(), next))
		}
		lead.Priority = next
	}
	if input.Name != nil {
		if *input.Name != lead.Name {
			changes = append(changes, "Name updated")
		}
		lead.Name = *input.Name
	}

	if input.Email != nil {
		lead.Email = *input.Email
	}
	if input.Phone != nil {
		lead.Phone = *input.Phone
	}
	if input.Company != nil {
		lead.Company = *input.Company
	}
	if input.Source != nil {
		lead.Source = entity.Source(*input.Source)
	}
	if input.Value != nil {
		lead.Value = *input.Value
	}
	if input.Tags != nil {
		lead.Tags = *input.Tags
	}
	if input.FollowUpDate != nil {
		lead.FollowUpDate = input.FollowUpDate.Ptr()
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == "" {
			lead.AssignedTo = nil
		} else {
			lead.AssignedTo = &entity.UserRef{ID: *input.AssignedTo}
		}
	}

	if len(changes) > 0 {
		lead.AppendActivity(entity.ActionLeadUpdated, strings.Join(changes, ", "), actor, now)
	}
	lead.Touch(now)

	if err := saveLead(ctx, uc.Repo, lead); err != nil {
		return nil, err
	}

	if lead.Status != oldStatus {
		uc.statusChanged(ctx, lead, actor)
	}

	if err := resolveUsers(ctx, uc.Users, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// UpdateStatus records every call in the activity log, including calls that
// set the status the lead already has. Setting Contacted always refreshes
// LastContactedAt.
func (uc *LeadLifecycleUseCase) UpdateStatus(ctx context.Context, id, status string, actor entity.UserRef) (*entity.Lead, error) {
	next, err := entity.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, newValidationError("status", "must be one of "+joinValues(entity.Statuses))
	}

	lead, err := loadLead(ctx, uc.Repo, id)
	if err != nil {
		return nil, err
	}

	now := uc.Now()
	old := lead.Status
	lead.Status = next
	if next == entity.StatusContacted {
		lead.LastContactedAt = &now
	}
	lead.AppendActivity(entity.ActionStatusChanged, fmt.Sprintf("%s → %s", old, next), actor, now)
	lead.Touch(now)

	if err := saveLead(ctx, uc.Repo, lead); err != nil {
		return nil, err
	}

	if old != next {
		uc.statusChanged(ctx, lead, actor)
	}

	if err := resolveUsers(ctx, uc.Users, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (uc *LeadLifecycleUseCase) Delete(ctx context.Context, id string) error {
	deleted, err := uc.Repo.Delete(ctx, id)
	if err != nil {
		return &StoreError{Op: "delete lead", Err: err}
	}
	if !deleted {
		return &NotFoundError{Resource: "lead", ID: id}
	}
	uc.Logger.Info("lead deleted", zap.String("lead_id", id))
	return nil
}

func (uc *LeadLifecycleUseCase) Get(ctx context.Context, id string) (*entity.Lead, error) {
	lead, err := loadLead(ctx, uc.Repo, id)
	if err != nil {
		return nil, err
	}
	if err := resolveUsers(ctx, uc.Users, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

func (uc *LeadLifecycleUseCase) List(ctx context.Context, spec FilterSpec) ([]*entity.Lead, error) {
	q, order, err := BuildLeadQuery(spec, uc.Now().In(uc.Location))
	if err != nil {
		return nil, err
	}

	leads, err := uc.Repo.Find(ctx, q, order)
	if err != nil {
		return nil, &StoreError{Op: "find leads", Err: err}
	}
	if err := resolveUsers(ctx, uc.Users, leads...); err != nil {
		return nil, err
	}
	return leads, nil
}

func (uc *LeadLifecycleUseCase) statusChanged(ctx context.Context, lead *entity.Lead, actor entity.UserRef) {
	if uc.Metrics != nil {
		uc.Metrics.LeadStatusChanged(string(lead.Status))
	}
	switch lead.Status {
	case entity.StatusConverted:
		uc.publish(ctx, EventLeadConverted, lead, actor)
	case entity.StatusLost:
		uc.publish(ctx, EventLeadLost, lead, actor)
	}
}

// publish never fails the operation: the lead is already persisted.
func (uc *LeadLifecycleUseCase) publish(ctx context.Context, eventType string, lead *entity.Lead, actor entity.UserRef) {
	if uc.Publisher == nil {
		return
	}
	event := NewLeadEvent(eventType, lead, actor, uc.Now())
	if err := uc.Publisher.PublishLeadEvent(ctx, event); err != nil {
		uc.Logger.Warn("lead event not published",
			zap.String("event", eventType),
			zap.String("lead_id", lead.ID),
			zap.Error(err),
		)
	}
}

func loadLead(ctx context.Context, repo LeadRepository, id string) (*entity.Lead, error) {
	lead, err := repo.FindByID(ctx, id)
	if errors.Is(err, entity.ErrLeadNotFound) {
		return nil, &NotFoundError{Resource: "lead", ID: id}
	}
	if err != nil {
		return nil, &StoreError{Op: "find lead", Err: err}
	}
	return lead, nil
}

func saveLead(ctx context.Context, repo LeadRepository, lead *entity.Lead) error {
	err := repo.Update(ctx, lead)
	if errors.Is(err, entity.ErrLeadNotFound) {
		return &NotFoundError{Resource: "lead", ID: lead.ID}
	}
	if err != nil {
		return &StoreError{Op: "update lead", Err: err}
	}
	return nil
}

// resolveUsers fills user display fields with a single directory lookup.
func resolveUsers(ctx context.Context, users UserDirectory, leads ...*entity.Lead) error {
	if users == nil || len(leads) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var ids []string
	for _, l := range leads {
		for _, id := range l.UserIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	refs, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return &StoreError{Op: "resolve users", Err: err}
	}
	for _, l := range leads {
		l.Resolve(refs)
	}
	return nil
}
