package usecase

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestBuildLeadQuery_Empty(t *testing.T) {
	q, order, err := BuildLeadQuery(FilterSpec{}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, entity.LeadQuery{}, q)
	assert.Equal(t, entity.Ordering{{Field: entity.SortUpdatedAt, Desc: true}}, order)
}

func TestBuildLeadQuery_Enums(t *testing.T) {
	q, _, err := BuildLeadQuery(FilterSpec{Status: "Qualified", Source: "Social Media", Priority: "Urgent", Search: "  acme "}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, *q.Status)
	assert.Equal(t, entity.SourceSocialMedia, *q.Source)
	assert.Equal(t, entity.PriorityUrgent, *q.Priority)
	assert.Equal(t, "acme", q.Search)
}

func TestBuildLeadQuery_UnknownEnumsFail(t *testing.T) {
	_, _, err := BuildLeadQuery(FilterSpec{Status: "new", Source: "TV"}, time.Now())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, "status", verr.Fields[0].Field)
	assert.Equal(t, "source", verr.Fields[1].Field)
}

func TestBuildLeadQuery_FollowUpWindows(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, loc)

	q, _, err := BuildLeadQuery(FilterSpec{FollowUp: "overdue"}, now)
	require.NoError(t, err)
	assert.Equal(t, now, *q.FollowUpBefore)
	assert.ElementsMatch(t, []entity.Status{entity.StatusConverted, entity.StatusLost}, q.ExcludeStatuses)

	q, _, err = BuildLeadQuery(FilterSpec{FollowUp: "today"}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, loc), *q.FollowUpFrom)
	assert.Equal(t, time.Date(2024, 3, 10, 23, 59, 59, int(999*time.Millisecond), loc), *q.FollowUpTo)

	q, _, err = BuildLeadQuery(FilterSpec{FollowUp: "week"}, now)
	require.NoError(t, err)
	assert.Equal(t, now, *q.FollowUpFrom)
	assert.Equal(t, now.AddDate(0, 0, 7), *q.FollowUpTo)

	q, _, err = BuildLeadQuery(FilterSpec{FollowUp: "someday"}, now)
	require.NoError(t, err)
	assert.Nil(t, q.FollowUpBefore)
	assert.Nil(t, q.FollowUpFrom)
}

func TestBuildLeadQuery_Sorts(t *testing.T) {
	cases := map[string]entity.Ordering{
		"newest":     {{Field: entity.SortCreatedAt, Desc: true}},
		"oldest":     {{Field: entity.SortCreatedAt}},
		"name":       {{Field: entity.SortName}},
		"value-high": {{Field: entity.SortValue, Desc: true}},
		"value-low":  {{Field: entity.SortValue}},
		"priority":   {{Field: entity.SortPriority, Desc: true}, {Field: entity.SortUpdatedAt, Desc: true}},
		"followup":   {{Field: entity.SortFollowUpDate}},
		"bogus":      {{Field: entity.SortUpdatedAt, Desc: true}},
	}

	for sortBy, want := range cases {
		t.Run(sortBy, func(t *testing.T) {
			_, order, err := BuildLeadQuery(FilterSpec{SortBy: sortBy}, time.Now())
			require.NoError(t, err)
			assert.Equal(t, want, order)
		})
	}
}

func TestFlexibleTime_Unmarshal(t *testing.T) {
	var in UpdateLeadInput

	require.NoError(t, json.Unmarshal([]byte(`{"followUpDate":"2024-03-12"}`), &in))
	require.NotNil(t, in.FollowUpDate)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), in.FollowUpDate.Time)

	in = UpdateLeadInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"followUpDate":"2024-03-12T14:00:00-03:00"}`), &in))
	assert.Equal(t, 17, in.FollowUpDate.UTC().Hour())

	in = UpdateLeadInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"followUpDate":""}`), &in))
	require.NotNil(t, in.FollowUpDate)
	assert.Nil(t, in.FollowUpDate.Ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"followUpDate":"next tuesday"}`), &in))
}
