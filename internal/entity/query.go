package entity

import (
	"strings"
	"time"
)

// LeadQuery is a store-agnostic predicate over leads. Every set field is
// combined with AND; a zero LeadQuery matches every lead.
type LeadQuery struct {
	Status          *Status
	Source          *Source
	Priority        *Priority
	ExcludeStatuses []Status

	// FollowUpBefore matches followUpDate < FollowUpBefore.
	FollowUpBefore *time.Time
	// FollowUpFrom/FollowUpTo match an inclusive followUpDate window.
	FollowUpFrom *time.Time
	FollowUpTo   *time.Time

	CreatedSince *time.Time
	MinValue     *float64 // strictly greater than

	// Search is a case-insensitive substring matched against name, email,
	// company or any tag.
	Search string

	Limit int
}

func (q LeadQuery) Matches(l *Lead) bool {
	if q.Status != nil && l.Status != *q.Status {
		return false
	}
	if q.Source != nil && l.Source != *q.Source {
		return false
	}
	if q.Priority != nil && l.Priority.OrDefault() != *q.Priority {
		return false
	}
	for _, s := range q.ExcludeStatuses {
		if l.Status == s {
			return false
		}
	}
	if q.FollowUpBefore != nil {
		if l.FollowUpDate == nil || !l.FollowUpDate.Before(*q.FollowUpBefore) {
			return false
		}
	}
	if q.FollowUpFrom != nil {
		if l.FollowUpDate == nil || l.FollowUpDate.Before(*q.FollowUpFrom) {
			return false
		}
	}
	if q.FollowUpTo != nil {
		if l.FollowUpDate == nil || l.FollowUpDate.After(*q.FollowUpTo) {
			return false
		}
	}
	if q.CreatedSince != nil && l.CreatedAt.Before(*q.CreatedSince) {
		return false
	}
	if q.MinValue != nil && l.Value <= *q.MinValue {
		return false
	}
	if q.Search != "" && !matchesSearch(l, q.Search) {
		return false
	}
	return true
}

func matchesSearch(l *Lead, term string) bool {
	term = strings.ToLower(term)
	fields := append([]string{l.Name, l.Email, l.Company}, l.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

type SortField string

const (
	SortCreatedAt    SortField = "createdAt"
	SortUpdatedAt    SortField = "updatedAt"
	SortName         SortField = "name"
	SortValue        SortField = "value"
	SortPriority     SortField = "priority"
	SortFollowUpDate SortField = "followUpDate"
)

type SortKey struct {
	Field SortField
	Desc  bool
}

// Ordering is a list of sort keys applied left to right.
type Ordering []SortKey

// Less reports whether a sorts before b. Leads without a follow-up date
// always sort after the ones that have one.
func (o Ordering) Less(a, b *Lead) bool {
	for _, k := range o {
		c := compareField(k.Field, a, b)
		if c == 0 {
			continue
		}
		if k.Field == SortFollowUpDate && (a.FollowUpDate == nil || b.FollowUpDate == nil) {
			return c < 0
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareField(f SortField, a, b *Lead) int {
	switch f {
	case SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortValue:
		return compareFloat(a.Value, b.Value)
	case SortPriority:
		return a.Priority.OrDefault().Rank() - b.Priority.OrDefault().Rank()
	case SortFollowUpDate:
		switch {
		case a.FollowUpDate == nil && b.FollowUpDate == nil:
			return 0
		case a.FollowUpDate == nil:
			return 1
		case b.FollowUpDate == nil:
			return -1
		}
		return a.FollowUpDate.Compare(*b.FollowUpDate)
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// GroupField names a lead attribute that analytics can count by.
type GroupField string

const (
	GroupByStatus   GroupField = "status"
	GroupBySource   GroupField = "source"
	GroupByPriority GroupField = "priority"
)

// MonthlyBucket aggregates leads created in one calendar month.
type MonthlyBucket struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}
