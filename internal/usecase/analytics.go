package usecase

import (
	"context"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const (
	upcomingLimit    = 10
	recentLimit      = 10
	monthlyWindow    = 6
	exportDateLayout = "1/2/2006"
)

type FollowUpSummary struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	FollowUpDate *time.Time      `json:"followUpDate"`
	Status       entity.Status   `json:"status"`
	Priority     entity.Priority `json:"priority"`
}

type RecentLead struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Status    entity.Status   `json:"status"`
	Priority  entity.Priority `json:"priority"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type AnalyticsSummary struct {
	TotalLeads        int                    `json:"totalLeads"`
	ConversionRate    float64                `json:"conversionRate"`
	PipelineValue     float64                `json:"pipelineValue"`
	ConvertedValue    float64                `json:"convertedValue"`
	AverageLeadValue  int64                  `json:"averageLeadValue"`
	OverdueFollowUps  int                    `json:"overdueFollowUps"`
	StatusBreakdown   map[string]int         `json:"statusBreakdown"`
	SourceBreakdown   map[string]int         `json:"sourceBreakdown"`
	PriorityBreakdown map[string]int         `json:"priorityBreakdown"`
	MonthlyLeads      []entity.MonthlyBucket `json:"monthlyLeads"`
	UpcomingFollowUps []FollowUpSummary      `json:"upcomingFollowUps"`
	RecentActivity    []RecentLead           `json:"recentActivity"`
	GeneratedAt       time.Time              `json:"generatedAt"`
}

// ExportRow is one line of the lead export, columns in ExportHeader order.
type ExportRow struct {
	Name         string
	Email        string
	Phone        string
	Company      string
	Source       string
	Status       string
	Priority     string
	Value        float64
	FollowUpDate string
	CreatedAt    string
	NotesCount   int
}

var ExportHeader = []string{
	"Name", "Email", "Phone", "Company", "Source", "Status", "Priority",
	"Value", "Follow-Up Date", "Created At", "Notes Count",
}

func (r ExportRow) Cells() []string {
	return []string{
		r.Name,
		r.Email,
		r.Phone,
		r.Company,
		r.Source,
		r.Status,
		r.Priority,
		strconv.FormatFloat(r.Value, 'f', -1, 64),
		r.FollowUpDate,
		r.CreatedAt,
		strconv.Itoa(r.NotesCount),
	}
}

type AnalyticsUseCase struct {
	Repo     LeadRepository
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
}

func NewAnalyticsUseCase(repo LeadRepository, loc *time.Location, logger *zap.Logger) *AnalyticsUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsUseCase{
		Repo:     repo,
		Logger:   logger,
		Location: loc,
		Now:      time.Now,
	}
}

// Dashboard computes a point-in-time summary over every lead. The reads are
// independent and run concurrently; any failure fails the whole summary.
func (uc *AnalyticsUseCase) Dashboard(ctx context.Context) (*AnalyticsSummary, error) {
	now := uc.Now().In(uc.Location)
	weekAhead := now.AddDate(0, 0, 7)
	converted := entity.StatusConverted
	lost := entity.StatusLost
	zero := 0.0
	since := firstOfMonth(now).AddDate(0, -(monthlyWindow - 1), 0)

	var (
		summary          = &AnalyticsSummary{GeneratedAt: now}
		monthly          []entity.MonthlyBucket
		upcoming, recent []*entity.Lead
		average          float64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		summary.TotalLeads, err = uc.Repo.Count(gctx, entity.LeadQuery{})
		return storeErrOrNil("count leads", err)
	})
	g.Go(func() (err error) {
		summary.StatusBreakdown, err = uc.Repo.CountBy(gctx, entity.GroupByStatus)
		return storeErrOrNil("count by status", err)
	})
	g.Go(func() (err error) {
		summary.SourceBreakdown, err = uc.Repo.CountBy(gctx, entity.GroupBySource)
		return storeErrOrNil("count by source", err)
	})
	g.Go(func() (err error) {
		summary.PriorityBreakdown, err = uc.Repo.CountBy(gctx, entity.GroupByPriority)
		return storeErrOrNil("count by priority", err)
	})
	g.Go(func() (err error) {
		summary.PipelineValue, err = uc.Repo.SumValue(gctx, entity.LeadQuery{ExcludeStatuses: []entity.Status{lost}})
		return storeErrOrNil("sum pipeline value", err)
	})
	g.Go(func() (err error) {
		summary.ConvertedValue, err = uc.Repo.SumValue(gctx, entity.LeadQuery{Status: &converted})
		return storeErrOrNil("sum converted value", err)
	})
	g.Go(func() (err error) {
		average, err = uc.Repo.AverageValue(gctx, entity.LeadQuery{MinValue: &zero})
		return storeErrOrNil("average value", err)
	})
	g.Go(func() (err error) {
		summary.OverdueFollowUps, err = uc.Repo.Count(gctx, entity.LeadQuery{
			FollowUpBefore:  &now,
			ExcludeStatuses: closedStatuses,
		})
		return storeErrOrNil("count overdue", err)
	})
	g.Go(func() (err error) {
		upcoming, err = uc.Repo.Find(gctx, entity.LeadQuery{
			FollowUpFrom:    &now,
			FollowUpTo:      &weekAhead,
			ExcludeStatuses: closedStatuses,
			Limit:           upcomingLimit,
		}, entity.Ordering{{Field: entity.SortFollowUpDate}})
		return storeErrOrNil("find upcoming follow-ups", err)
	})
	g.Go(func() (err error) {
		recent, err = uc.Repo.Find(gctx, entity.LeadQuery{Limit: recentLimit},
			entity.Ordering{{Field: entity.SortUpdatedAt, Desc: true}})
		return storeErrOrNil("find recent leads", err)
	})
	g.Go(func() (err error) {
		monthly, err = uc.Repo.MonthlyCreated(gctx, since, uc.Location)
		return storeErrOrNil("monthly leads", err)
	})

	if err := g.Wait(); err != nil {
		uc.Logger.Error("dashboard aggregation failed", zap.Error(err))
		return nil, err
	}

	summary.ConversionRate = conversionRate(summary.StatusBreakdown[string(entity.StatusConverted)], summary.TotalLeads)
	summary.AverageLeadValue = int64(math.Round(average))
	summary.PriorityBreakdown = foldMissingPriority(summary.PriorityBreakdown)
	if summary.StatusBreakdown == nil {
		summary.StatusBreakdown = map[string]int{}
	}
	if summary.SourceBreakdown == nil {
		summary.SourceBreakdown = map[string]int{}
	}
	summary.MonthlyLeads = fillMonths(monthly, since, monthlyWindow)

	summary.UpcomingFollowUps = make([]FollowUpSummary, 0, len(upcoming))
	for _, l := range upcoming {
		summary.UpcomingFollowUps = append(summary.UpcomingFollowUps, FollowUpSummary{
			ID:           l.ID,
			Name:         l.Name,
			Email:        l.Email,
			FollowUpDate: l.FollowUpDate,
			Status:       l.Status,
			Priority:     l.Priority.OrDefault(),
		})
	}
	summary.RecentActivity = make([]RecentLead, 0, len(recent))
	for _, l := range recent {
		summary.RecentActivity = append(summary.RecentActivity, RecentLead{
			ID:        l.ID,
			Name:      l.Name,
			Status:    l.Status,
			Priority:  l.Priority.OrDefault(),
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		})
	}

	return summary, nil
}

// ExportRows streams one row per lead, newest first.
func (uc *AnalyticsUseCase) ExportRows(ctx context.Context, emit func(ExportRow) error) error {
	order := entity.Ordering{{Field: entity.SortCreatedAt, Desc: true}}
	var emitErr error
	err := uc.Repo.Stream(ctx, entity.LeadQuery{}, order, func(l *entity.Lead) error {
		if err := emit(uc.exportRow(l)); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		return &StoreError{Op: "stream leads", Err: err}
	}
	return nil
}

func (uc *AnalyticsUseCase) exportRow(l *entity.Lead) ExportRow {
	row := ExportRow{
		Name:       l.Name,
		Email:      l.Email,
		Phone:      l.Phone,
		Company:    l.Company,
		Source:     string(l.Source),
		Status:     string(l.Status),
		Priority:   string(l.Priority.OrDefault()),
		Value:      l.Value,
		CreatedAt:  l.CreatedAt.In(uc.Location).Format(exportDateLayout),
		NotesCount: len(l.Notes),
	}
	if l.FollowUpDate != nil {
		row.FollowUpDate = l.FollowUpDate.In(uc.Location).Format(exportDateLayout)
	}
	return row
}

func conversionRate(converted, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(converted)/float64(total)*1000) / 10
}

func foldMissingPriority(counts map[string]int) map[string]int {
	if counts == nil {
		return map[string]int{}
	}
	if n, ok := counts[""]; ok {
		delete(counts, "")
		counts[string(entity.PriorityMedium)] += n
	}
	return counts
}

// fillMonths returns exactly n consecutive monthly buckets starting at
// since, using zero for months without leads.
func fillMonths(buckets []entity.MonthlyBucket, since time.Time, n int) []entity.MonthlyBucket {
	byMonth := make(map[[2]int]entity.MonthlyBucket, len(buckets))
	for _, b := range buckets {
		byMonth[[2]int{b.Year, b.Month}] = b
	}

	out := make([]entity.MonthlyBucket, 0, n)
	for i := 0; i < n; i++ {
		m := since.AddDate(0, i, 0)
		key := [2]int{m.Year(), int(m.Month())}
		b, ok := byMonth[key]
		if !ok {
			b = entity.MonthlyBucket{Year: key[0], Month: key[1]}
		}
		out = append(out, b)
	}
	return out
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func storeErrOrNil(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
