package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

const leadColumns = `id, name, email, phone, company, source, status, priority, value, tags,
	follow_up_date, last_contacted_at, notes, activity_log, created_by, assigned_to,
	created_at, updated_at`

// Legacy rows may carry an empty priority, which reads as Medium.
const (
	effectivePriority = `COALESCE(NULLIF(priority, ''), 'Medium')`
	priorityRank      = `CASE ` + effectivePriority + ` WHEN 'Low' THEN 1 WHEN 'Medium' THEN 2 WHEN 'High' THEN 3 WHEN 'Urgent' THEN 4 ELSE 0 END`
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Find(ctx context.Context, q entity.LeadQuery, order entity.Ordering) ([]*entity.Lead, error) {
	leads := []*entity.Lead{}
	err := r.Stream(ctx, q, order, func(l *entity.Lead) error {
		leads = append(leads, l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return leads, nil
}

func (r *LeadRepository) Stream(ctx context.Context, q entity.LeadQuery, order entity.Ordering, fn func(*entity.Lead) error) error {
	where, args := buildWhere(q)
	query := `SELECT ` + leadColumns + ` FROM leads` + where + orderBy(order)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return err
		}
		if err := fn(lead); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	return lead, err
}

func (r *LeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	args, err := leadArgs(lead)
	if err != nil {
		return err
	}

	query := `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	args, err := leadArgs(lead)
	if err != nil {
		return err
	}

	query := `
		UPDATE leads SET
			name = $2, email = $3, phone = $4, company = $5, source = $6,
			status = $7, priority = $8, value = $9, tags = $10,
			follow_up_date = $11, last_contacted_at = $12,
			notes = $13, activity_log = $14, created_by = $15, assigned_to = $16,
			created_at = $17, updated_at = $18
		WHERE id = $1
	`

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete lead: %w", err)
	}
	return n > 0, nil
}

func (r *LeadRepository) Count(ctx context.Context, q entity.LeadQuery) (int, error) {
	where, args := buildWhere(q)
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (r *LeadRepository) CountBy(ctx context.Context, field entity.GroupField) (map[string]int, error) {
	var column string
	switch field {
	case entity.GroupByStatus:
		column = "status"
	case entity.GroupBySource:
		column = "source"
	case entity.GroupByPriority:
		column = "priority"
	default:
		return nil, fmt.Errorf("unknown group field %q", field)
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM leads GROUP BY `+column)
	if err != nil {
		return nil, fmt.Errorf("count leads by %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		counts[key] += n
	}
	return counts, rows.Err()
}

func (r *LeadRepository) SumValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	where, args := buildWhere(q)
	var total float64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(value), 0) FROM leads`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum lead value: %w", err)
	}
	return total, nil
}

func (r *LeadRepository) AverageValue(ctx context.Context, q entity.LeadQuery) (float64, error) {
	where, args := buildWhere(q)
	var avg float64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(AVG(value), 0) FROM leads`+where, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average lead value: %w", err)
	}
	return avg, nil
}

func (r *LeadRepository) MonthlyCreated(ctx context.Context, since time.Time, loc *time.Location) ([]entity.MonthlyBucket, error) {
	query := `
		SELECT
			EXTRACT(YEAR FROM created_at AT TIME ZONE $2)::int AS y,
			EXTRACT(MONTH FROM created_at AT TIME ZONE $2)::int AS m,
			COUNT(*),
			COALESCE(SUM(value), 0)
		FROM leads
		WHERE created_at >= $1
		GROUP BY y, m
		ORDER BY y, m
	`

	rows, err := r.DB.QueryContext(ctx, query, since, zoneName(loc))
	if err != nil {
		return nil, fmt.Errorf("monthly leads: %w", err)
	}
	defer rows.Close()

	buckets := []entity.MonthlyBucket{}
	for rows.Next() {
		var b entity.MonthlyBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.Count, &b.Value); err != nil {
			return nil, fmt.Errorf("scan monthly bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (*entity.Lead, error) {
	var (
		l                        entity.Lead
		source, status, priority string
		tags                     []string
		followUp, lastContacted  sql.NullTime
		notes, activity          []byte
		createdBy                string
		assignedTo               sql.NullString
	)

	err := s.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company,
		&source, &status, &priority, &l.Value, pq.Array(&tags),
		&followUp, &lastContacted, &notes, &activity,
		&createdBy, &assignedTo, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	l.Source = entity.Source(source)
	l.Status = entity.Status(status)
	l.Priority = entity.Priority(priority)
	l.Tags = tags
	if l.Tags == nil {
		l.Tags = []string{}
	}
	if followUp.Valid {
		t := followUp.Time
		l.FollowUpDate = &t
	}
	if lastContacted.Valid {
		t := lastContacted.Time
		l.LastContactedAt = &t
	}
	l.CreatedBy = entity.UserRef{ID: createdBy}
	if assignedTo.Valid && assignedTo.String != "" {
		l.AssignedTo = &entity.UserRef{ID: assignedTo.String}
	}

	l.Notes = []entity.Note{}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &l.Notes); err != nil {
			return nil, fmt.Errorf("decode notes of lead %s: %w", l.ID, err)
		}
	}
	l.ActivityLog = []entity.Activity{}
	if len(activity) > 0 {
		if err := json.Unmarshal(activity, &l.ActivityLog); err != nil {
			return nil, fmt.Errorf("decode activity of lead %s: %w", l.ID, err)
		}
	}

	return &l, nil
}

// leadArgs returns the column values in leadColumns order. User references
// are stored by id only.
func leadArgs(l *entity.Lead) ([]any, error) {
	notes := make([]entity.Note, len(l.Notes))
	for i, n := range l.Notes {
		n.CreatedBy = entity.UserRef{ID: n.CreatedBy.ID}
		notes[i] = n
	}
	activity := make([]entity.Activity, len(l.ActivityLog))
	for i, a := range l.ActivityLog {
		a.PerformedBy = entity.UserRef{ID: a.PerformedBy.ID}
		activity[i] = a
	}

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return nil, fmt.Errorf("encode activity: %w", err)
	}

	tags := l.Tags
	if tags == nil {
		tags = []string{}
	}

	var assignedTo *string
	if l.AssignedTo != nil && l.AssignedTo.ID != "" {
		assignedTo = &l.AssignedTo.ID
	}

	return []any{
		l.ID, l.Name, l.Email, l.Phone, l.Company,
		string(l.Source), string(l.Status), string(l.Priority), l.Value, pq.Array(tags),
		nullTime(l.FollowUpDate), nullTime(l.LastContactedAt), notesJSON, activityJSON,
		l.CreatedBy.ID, assignedTo, l.CreatedAt, l.UpdatedAt,
	}, nil
}

// whereBuilder collects AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *whereBuilder) add(cond string) {
	b.conds = append(b.conds, cond)
}

func buildWhere(q entity.LeadQuery) (string, []any) {
	b := &whereBuilder{}

	if q.Status != nil {
		b.add("status = " + b.arg(string(*q.Status)))
	}
	if q.Source != nil {
		b.add("source = " + b.arg(string(*q.Source)))
	}
	if q.Priority != nil {
		b.add(effectivePriority + " = " + b.arg(string(*q.Priority)))
	}
	if len(q.ExcludeStatuses) > 0 {
		excluded := make([]string, len(q.ExcludeStatuses))
		for i, s := range q.ExcludeStatuses {
			excluded[i] = string(s)
		}
		b.add("status <> ALL(" + b.arg(pq.Array(excluded)) + ")")
	}
	if q.FollowUpBefore != nil {
		b.add("follow_up_date < " + b.arg(*q.FollowUpBefore))
	}
	if q.FollowUpFrom != nil {
		b.add("follow_up_date >= " + b.arg(*q.FollowUpFrom))
	}
	if q.FollowUpTo != nil {
		b.add("follow_up_date <= " + b.arg(*q.FollowUpTo))
	}
	if q.CreatedSince != nil {
		b.add("created_at >= " + b.arg(*q.CreatedSince))
	}
	if q.MinValue != nil {
		b.add("value > " + b.arg(*q.MinValue))
	}
	if q.Search != "" {
		p := b.arg("%" + escapeLike(q.Search) + "%")
		b.add("(name ILIKE " + p + " OR email ILIKE " + p + " OR company ILIKE " + p +
			" OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE " + p + "))")
	}

	if len(b.conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.conds, " AND "), b.args
}

func orderBy(order entity.Ordering) string {
	parts := make([]string, 0, len(order)+1)
	for _, k := range order {
		dir := " ASC"
		if k.Desc {
			dir = " DESC"
		}
		switch k.Field {
		case entity.SortCreatedAt:
			parts = append(parts, "created_at"+dir)
		case entity.SortUpdatedAt:
			parts = append(parts, "updated_at"+dir)
		case entity.SortName:
			parts = append(parts, `name COLLATE "C"`+dir)
		case entity.SortValue:
			parts = append(parts, "value"+dir)
		case entity.SortPriority:
			parts = append(parts, priorityRank+dir)
		case entity.SortFollowUpDate:
			parts = append(parts, "follow_up_date"+dir+" NULLS LAST")
		}
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// zoneName returns an IANA name PostgreSQL understands. The process-local
// zone has no portable name, so it falls back to UTC.
func zoneName(loc *time.Location) string {
	if loc == nil || loc.String() == "Local" || loc.String() == "" {
		return "UTC"
	}
	return loc.String()
}
