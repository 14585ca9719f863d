package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type DigestSender interface {
	SendFollowUpDigest(to string, data mail.FollowUpDigestData) error
}

// FollowUpDigestWorker mails every assignee the open leads whose follow-up
// date has already passed.
type FollowUpDigestWorker struct {
	repo     usecase.LeadRepository
	users    usecase.UserDirectory
	sender   DigestSender
	schedule string
	loc      *time.Location
	logger   *zap.Logger

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewFollowUpDigestWorker(repo usecase.LeadRepository, users usecase.UserDirectory, sender DigestSender, schedule string, loc *time.Location, logger *zap.Logger) *FollowUpDigestWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowUpDigestWorker{
		repo:     repo,
		users:    users,
		sender:   sender,
		schedule: schedule,
		loc:      loc,
		logger:   logger,
		Now:      time.Now,
	}
}

// Start runs the digest on its cron schedule until ctx is done.
func (w *FollowUpDigestWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(w.loc))
	_, err := c.AddFunc(w.schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		sent, err := w.RunOnce(runCtx)
		if err != nil {
			w.logger.Error("follow-up digest failed", zap.Error(err), zap.Int("sent", sent))
			return
		}
		w.logger.Info("follow-up digest completed", zap.Int("sent", sent))
	})
	if err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", w.schedule, err)
	}

	w.logger.Info("follow-up digest worker started", zap.String("schedule", w.schedule))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("follow-up digest worker stopped")
	return nil
}

// RunOnce sends one digest per assignee and returns how many were sent.
// Unassigned leads and users without an e-mail address are skipped. A failed
// send does not stop the others.
func (w *FollowUpDigestWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.Now()
	q := entity.LeadQuery{
		FollowUpBefore:  &now,
		ExcludeStatuses: []entity.Status{entity.StatusConverted, entity.StatusLost},
	}
	order := entity.Ordering{{Field: entity.SortFollowUpDate}}

	overdue, err := w.repo.Find(ctx, q, order)
	if err != nil {
		return 0, fmt.Errorf("failed to load overdue leads: %w", err)
	}

	byAssignee := map[string][]mail.DigestLead{}
	var ids []string
	for _, l := range overdue {
		if l.AssignedTo == nil || l.AssignedTo.ID == "" {
			continue
		}
		id := l.AssignedTo.ID
		if _, ok := byAssignee[id]; !ok {
			ids = append(ids, id)
		}
		byAssignee[id] = append(byAssignee[id], mail.DigestLead{
			ID:           l.ID,
			Name:         l.Name,
			Company:      l.Company,
			Status:       string(l.Status),
			Priority:     string(l.Priority.OrDefault()),
			FollowUpDate: *l.FollowUpDate,
		})
	}
	if len(ids) == 0 {
		return 0, nil
	}

	users, err := w.users.FindByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve assignees: %w", err)
	}

	sent := 0
	var errs []error
	for _, id := range ids {
		u, ok := users[id]
		if !ok || u.Email == "" {
			w.logger.Warn("skipping digest for assignee without e-mail", zap.String("user_id", id))
			continue
		}
		data := mail.FollowUpDigestData{Name: u.Name, Leads: byAssignee[id], Loc: w.loc}
		if err := w.sender.SendFollowUpDigest(u.Email, data); err != nil {
			errs = append(errs, fmt.Errorf("digest for %s: %w", id, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}
