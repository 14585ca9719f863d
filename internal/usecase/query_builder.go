package usecase

import (
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	FollowUpOverdue = "overdue"
	FollowUpToday   = "today"
	FollowUpWeek    = "week"
)

var closedStatuses = []entity.Status{entity.StatusConverted, entity.StatusLost}

// BuildLeadQuery turns list filters into a store predicate and an ordering.
// Time windows are computed against now, in now's location.
func BuildLeadQuery(spec FilterSpec, now time.Time) (entity.LeadQuery, entity.Ordering, error) {
	var q entity.LeadQuery
	verr := &ValidationError{}

	if spec.Status != "" {
		s, err := entity.ParseStatus(spec.Status)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{"status", "must be one of " + joinValues(entity.Statuses)})
		} else {
			q.Status = &s
		}
	}
	if spec.Source != "" {
		s, err := entity.ParseSource(spec.Source)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{"source", "must be one of " + joinValues(entity.Sources)})
		} else {
			q.Source = &s
		}
	}
	if spec.Priority != "" {
		p, err := entity.ParsePriority(spec.Priority)
		if err != nil {
			verr.Fields = append(verr.Fields, FieldError{"priority", "must be one of " + joinValues(entity.Priorities)})
		} else {
			q.Priority = &p
		}
	}
	if len(verr.Fields) > 0 {
		return entity.LeadQuery{}, nil, verr
	}

	switch spec.FollowUp {
	case FollowUpOverdue:
		q.FollowUpBefore = &now
		q.ExcludeStatuses = closedStatuses
	case FollowUpToday:
		start := startOfDay(now)
		end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
		q.FollowUpFrom = &start
		q.FollowUpTo = &end
	case FollowUpWeek:
		end := now.AddDate(0, 0, 7)
		q.FollowUpFrom = &now
		q.FollowUpTo = &end
	}

	q.Search = strings.TrimSpace(spec.Search)

	return q, orderingFor(spec.SortBy), nil
}

func orderingFor(sortBy string) entity.Ordering {
	switch sortBy {
	case "newest":
		return entity.Ordering{{Field: entity.SortCreatedAt, Desc: true}}
	case "oldest":
		return entity.Ordering{{Field: entity.SortCreatedAt}}
	case "name":
		return entity.Ordering{{Field: entity.SortName}}
	case "value-high":
		return entity.Ordering{{Field: entity.SortValue, Desc: true}}
	case "value-low":
		return entity.Ordering{{Field: entity.SortValue}}
	case "priority":
		return entity.Ordering{{Field: entity.SortPriority, Desc: true}, {Field: entity.SortUpdatedAt, Desc: true}}
	case "followup":
		return entity.Ordering{{Field: entity.SortFollowUpDate}}
	}
	return entity.Ordering{{Field: entity.SortUpdatedAt, Desc: true}}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
