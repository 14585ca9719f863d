package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// MemoryLeadRepository keeps leads in process memory. It serializes writes
// with a mutex and hands out copies, so callers never share state with the
// store.
type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads map[string]*entity.Lead
}

func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{leads: make(map[string]*entity.Lead)}
}

func (r *MemoryLeadRepository) Find(ctx context.Context, q entity.LeadQuery, order entity.Ordering) ([]*entity.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot(q, order), nil
}

func (r *MemoryLeadRepository) Stream(ctx context.Context, q entity.LeadQuery, order entity.Ordering, fn func(*entity.Lead) error) error {
	for _, l := range r.snapshot(q, order) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return cloneLead(l), nil
}

func (r *MemoryLeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (r *MemoryLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[lead.ID]; !ok {
		return entity.ErrLeadNotFound
	}
	r.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (r *MemoryLeadRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.leads[id]; !ok {
		return false, nil
	}
	delete(r.leads, id)
	return true, nil
}

func (r *MemoryLeadRepository) Count(ctx context.Context, q entity.LeadQuery) (int, error) {
	return len(r.snapshot(q, nil)), nil
}

func (r *MemoryLeadRepository) CountBy(ctx context.Context, field entity.GroupField) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, l := range r.leads {
		switch field {
		case entity.GroupByStatus:
			counts[string(l.Status)]++
		case entity.GroupBySource:
			counts[string(l.Source)]++
		case entity.GroupByPriority:
			counts[string(l.Priority)]++
		}
	}
	return counts, nil
}

func (r *MemoryLeadRepository) SumValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	var total float64
	for _, l := range r.snapshot(q, nil) {
		total += l.Value
	}
	return total, nil
}

func (r *MemoryLeadRepository) AverageValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	leads := r.snapshot(q, nil)
	if len(leads) == 0 {
		return 0, nil
	}
	var total float64
	for _, l := range leads {
		total += l.Value
	}
	return total / float64(len(leads)), nil
}

func (r *MemoryLeadRepository) MonthlyCreated(ctx context.Context, since time.Time, loc *time.Location) ([]entity.MonthlyBucket, error) {
	buckets := map[[2]int]*entity.MonthlyBucket{}
	for _, l := range r.snapshot(entity.LeadQuery{CreatedSince: &since}, nil) {
		created := l.CreatedAt.In(loc)
		key := [2]int{created.Year(), int(created.Month())}
		b, ok := buckets[key]
		if !ok {
			b = &entity.MonthlyBucket{Year: key[0], Month: key[1]}
			buckets[key] = b
		}
		b.Count++
		b.Value += l.Value
	}

	out := make([]entity.MonthlyBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *MemoryLeadRepository) snapshot(q entity.LeadQuery, order entity.Ordering) []*entity.Lead {
	r.mu.RLock()
	out := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		if q.Matches(l) {
			out = append(out, cloneLead(l))
		}
	}
	r.mu.RUnlock()

	// Map iteration is random; id keeps results stable for equal sort keys.
	sort.SliceStable(out, func(i, j int) bool {
		if order.Less(out[i], out[j]) {
			return true
		}
		if order.Less(out[j], out[i]) {
			return false
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func cloneLead(l *entity.Lead) *entity.Lead {
	c := *l
	c.Tags = append([]string{}, l.Tags...)
	c.Notes = append([]entity.Note{}, l.Notes...)
	c.ActivityLog = append([]entity.Activity{}, l.ActivityLog...)
	if l.FollowUpDate != nil {
		t := *l.FollowUpDate
		c.FollowUpDate = &t
	}
	if l.LastContactedAt != nil {
		t := *l.LastContactedAt
		c.LastContactedAt = &t
	}
	if l.AssignedTo != nil {
		a := *l.AssignedTo
		c.AssignedTo = &a
	}
	return &c
}
