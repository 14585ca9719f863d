package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func seedLead(t *testing.T, repo *MemoryLeadRepository, name string, mutate func(*entity.Lead)) *entity.Lead {
	t.Helper()
	lead := entity.NewLead(name, name+"@example.com", entity.UserRef{ID: "u1"}, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if mutate != nil {
		mutate(lead)
	}
	require.NoError(t, repo.Insert(context.Background(), lead))
	return lead
}

func TestMemoryLeadRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryLeadRepository()
	lead := seedLead(t, repo, "ada", nil)

	got, err := repo.FindByID(context.Background(), lead.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.Tags = append(got.Tags, "x")

	again, err := repo.FindByID(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", again.Name)
	assert.Empty(t, again.Tags)
}

func TestMemoryLeadRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLeadRepository()
	lead := seedLead(t, repo, "ada", nil)

	lead.Status = entity.StatusQualified
	require.NoError(t, repo.Update(ctx, lead))
	got, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, got.Status)

	deleted, err := repo.Delete(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, lead.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.FindByID(ctx, lead.ID)
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
	assert.ErrorIs(t, repo.Update(ctx, lead), entity.ErrLeadNotFound)
}

func TestMemoryLeadRepository_FindOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLeadRepository()
	seedLead(t, repo, "low", func(l *entity.Lead) { l.Value = 10 })
	seedLead(t, repo, "high", func(l *entity.Lead) { l.Value = 300 })
	seedLead(t, repo, "mid", func(l *entity.Lead) { l.Value = 50 })

	leads, err := repo.Find(ctx, entity.LeadQuery{Limit: 2}, entity.Ordering{{Field: entity.SortValue, Desc: true}})

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "high", leads[0].Name)
	assert.Equal(t, "mid", leads[1].Name)
}

func TestMemoryLeadRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLeadRepository()
	seedLead(t, repo, "a", func(l *entity.Lead) { l.Value = 100 })
	seedLead(t, repo, "b", func(l *entity.Lead) { l.Value = 200; l.Status = entity.StatusConverted })
	seedLead(t, repo, "c", func(l *entity.Lead) { l.Value = 400; l.Status = entity.StatusLost; l.Priority = "" })
	seedLead(t, repo, "d", nil)

	lost := entity.StatusLost
	pipeline, err := repo.SumValue(ctx, entity.LeadQuery{ExcludeStatuses: []entity.Status{lost}})
	require.NoError(t, err)
	assert.Equal(t, 300.0, pipeline)

	zero := 0.0
	avg, err := repo.AverageValue(ctx, entity.LeadQuery{MinValue: &zero})
	require.NoError(t, err)
	assert.InDelta(t, 233.33, avg, 0.01)

	byStatus, err := repo.CountBy(ctx, entity.GroupByStatus)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"New": 2, "Converted": 1, "Lost": 1}, byStatus)

	byPriority, err := repo.CountBy(ctx, entity.GroupByPriority)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Medium": 3, "": 1}, byPriority)

	n, err := repo.Count(ctx, entity.LeadQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestMemoryLeadRepository_MonthlyCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLeadRepository()
	seedLead(t, repo, "jan", func(l *entity.Lead) { l.CreatedAt = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); l.Value = 5 })
	seedLead(t, repo, "mar1", func(l *entity.Lead) { l.CreatedAt = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC); l.Value = 10 })
	seedLead(t, repo, "mar2", func(l *entity.Lead) { l.CreatedAt = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC); l.Value = 20 })
	seedLead(t, repo, "old", func(l *entity.Lead) { l.CreatedAt = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC) })

	buckets, err := repo.MonthlyCreated(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.UTC)

	require.NoError(t, err)
	assert.Equal(t, []entity.MonthlyBucket{
		{Year: 2024, Month: 1, Count: 1, Value: 5},
		{Year: 2024, Month: 3, Count: 2, Value: 30},
	}, buckets)
}

func TestMemoryUserRepository_FindByIDs(t *testing.T) {
	repo := NewMemoryUserRepository(entity.UserRef{ID: "u1", Name: "Ada", Email: "ada@x.io"})
	repo.Save(entity.UserRef{ID: "u2", Name: "Bob", Email: "bob@x.io"})

	users, err := repo.FindByIDs(context.Background(), []string{"u1", "u2", "ghost"})

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Bob", users["u2"].Name)
}
