package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// AddNoteUseCase appends notes to a lead. Notes are tracked apart from the
// activity log and never produce an activity entry.
type AddNoteUseCase struct {
	Repo   LeadRepository
	Users  UserDirectory
	Logger *zap.Logger
	Now    func() time.Time
}

func NewAddNoteUseCase(repo LeadRepository, users UserDirectory, logger *zap.Logger) *AddNoteUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddNoteUseCase{
		Repo:   repo,
		Users:  users,
		Logger: logger,
		Now:    time.Now,
	}
}

func (uc *AddNoteUseCase) Execute(ctx context.Context, id, content string, actor entity.UserRef) (*entity.Lead, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newValidationError("content", "is required")
	}

	lead, err := loadLead(ctx, uc.Repo, id)
	if err != nil {
		return nil, err
	}

	now := uc.Now()
	lead.AppendNote(content, actor, now)
	lead.Touch(now)

	if err := saveLead(ctx, uc.Repo, lead); err != nil {
		return nil, err
	}

	uc.Logger.Debug("note added",
		zap.String("lead_id", lead.ID),
		zap.Int("notes", len(lead.Notes)),
	)

	if err := resolveUsers(ctx, uc.Users, lead); err != nil {
		return nil, err
	}
	return lead, nil
}
