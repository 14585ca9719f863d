package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type CreateLeadInput struct {
	Name         string        `json:"name" validate:"required"`
	Email        string        `json:"email" validate:"required,leademail"`
	Phone        string        `json:"phone"`
	Company      string        `json:"company"`
	Source       string        `json:"source" validate:"omitempty,leadsource"`
	Status       string        `json:"status" validate:"omitempty,leadstatus"`
	Priority     string        `json:"priority" validate:"omitempty,leadpriority"`
	Value        *float64      `json:"value" validate:"omitnil,gte=0"`
	Tags         []string      `json:"tags"`
	FollowUpDate *FlexibleTime `json:"followUpDate"`
	AssignedTo   string        `json:"assignedTo"`
}

// UpdateLeadInput is a partial patch: nil fields are left untouched. An
// empty followUpDate or assignedTo clears the stored value.
type UpdateLeadInput struct {
	Name         *string       `json:"name" validate:"omitnil,min=1"`
	Email        *string       `json:"email" validate:"omitnil,leademail"`
	Phone        *string       `json:"phone"`
	Company      *string       `json:"company"`
	Source       *string       `json:"source" validate:"omitnil,leadsource"`
	Status       *string       `json:"status" validate:"omitnil,leadstatus"`
	Priority     *string       `json:"priority" validate:"omitnil,leadpriority"`
	Value        *float64      `json:"value" validate:"omitnil,gte=0"`
	Tags         *[]string     `json:"tags"`
	FollowUpDate *FlexibleTime `json:"followUpDate"`
	AssignedTo   *string       `json:"assignedTo"`
}

// FilterSpec carries the list filters as received from the caller. Every
// field is optional.
type FilterSpec struct {
	Status   string `json:"status"`
	Source   string `json:"source"`
	Priority string `json:"priority"`
	FollowUp string `json:"followUp"`
	Search   string `json:"search"`
	SortBy   string `json:"sortBy"`
}

// FlexibleTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, the
// latter being what date pickers submit. An empty string decodes to the zero
// time.
type FlexibleTime struct {
	time.Time
}

func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("followUpDate must be a string: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", raw)
}

func (t FlexibleTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
