package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRef points at a user of the CRM. Name and Email are only filled when
// the reference was resolved for display.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Note struct {
	Content   string    `json:"content"`
	CreatedBy UserRef   `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Activity struct {
	Action      string    `json:"action"`
	Details     string    `json:"details"`
	PerformedBy UserRef   `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

const (
	ActionLeadCreated   = "Lead Created"
	ActionLeadUpdated   = "Lead Updated"
	ActionStatusChanged = "Status Changed"
)

type Lead struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Company         string     `json:"company,omitempty"`
	Source          Source     `json:"source"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	Value           float64    `json:"value"`
	Tags            []string   `json:"tags"`
	FollowUpDate    *time.Time `json:"followUpDate,omitempty"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	Notes           []Note     `json:"notes"`
	ActivityLog     []Activity `json:"activityLog"`
	CreatedBy       UserRef    `json:"createdBy"`
	AssignedTo      *UserRef   `json:"assignedTo,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewLead builds a lead with defaults applied and the creation activity
// already recorded. Field validation happens in the use case.
func NewLead(name, email string, createdBy UserRef, now time.Time) *Lead {
	lead := &Lead{
		ID:          uuid.New().String(),
		Name:        name,
		Email:       email,
		Source:      SourceWebsite,
		Status:      StatusNew,
		Priority:    PriorityMedium,
		Tags:        []string{},
		Notes:       []Note{},
		ActivityLog: []Activity{},
		CreatedBy:   UserRef{ID: createdBy.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lead.AppendActivity(ActionLeadCreated, fmt.Sprintf("Lead %q created", name), createdBy, now)
	return lead
}

func (l *Lead) AppendActivity(action, details string, by UserRef, now time.Time) {
	l.ActivityLog = append(l.ActivityLog, Activity{
		Action:      action,
		Details:     details,
		PerformedBy: UserRef{ID: by.ID},
		Timestamp:   now,
	})
}

func (l *Lead) AppendNote(content string, by UserRef, now time.Time) {
	l.Notes = append(l.Notes, Note{
		Content:   content,
		CreatedBy: UserRef{ID: by.ID},
		CreatedAt: now,
	})
}

// Touch marks the lead as mutated.
func (l *Lead) Touch(now time.Time) {
	l.UpdatedAt = now
}

func (l *Lead) IsOverdue(now time.Time) bool {
	return l.FollowUpDate != nil && l.FollowUpDate.Before(now) && !l.Status.Closed()
}

// UserIDs returns every user referenced by the lead, without duplicates.
func (l *Lead) UserIDs() []string {
	seen := map[string]bool{}
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(l.CreatedBy.ID)
	if l.AssignedTo != nil {
		add(l.AssignedTo.ID)
	}
	for _, n := range l.Notes {
		add(n.CreatedBy.ID)
	}
	for _, a := range l.ActivityLog {
		add(a.PerformedBy.ID)
	}
	return ids
}

// Resolve fills the display fields of every user reference found in users.
func (l *Lead) Resolve(users map[string]UserRef) {
	fill := func(ref *UserRef) {
		if u, ok := users[ref.ID]; ok {
			ref.Name = u.Name
			ref.Email = u.Email
		}
	}
	fill(&l.CreatedBy)
	if l.AssignedTo != nil {
		fill(l.AssignedTo)
	}
	for i := range l.Notes {
		fill(&l.Notes[i].CreatedBy)
	}
	for i := range l.ActivityLog {
		fill(&l.ActivityLog[i].PerformedBy)
	}
}
