package entity

import "fmt"

type Status string

const (
	StatusNew       Status = "New"
	StatusContacted Status = "Contacted"
	StatusQualified Status = "Qualified"
	StatusConverted Status = "Converted"
	StatusLost      Status = "Lost"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Closed reports whether the lead left the pipeline (won or lost).
func (s Status) Closed() bool {
	return s == StatusConverted || s == StatusLost
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: status %q", ErrInvalidEnum, raw)
	}
	return s, nil
}

type Source string

const (
	SourceWebsite       Source = "Website"
	SourceReferral      Source = "Referral"
	SourceSocialMedia   Source = "Social Media"
	SourceEmailCampaign Source = "Email Campaign"
	SourceDirect        Source = "Direct"
	SourceOther         Source = "Other"
)

var Sources = []Source{SourceWebsite, SourceReferral, SourceSocialMedia, SourceEmailCampaign, SourceDirect, SourceOther}

func (s Source) Valid() bool {
	for _, v := range Sources {
		if s == v {
			return true
		}
	}
	return false
}

func ParseSource(raw string) (Source, error) {
	s := Source(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: source %q", ErrInvalidEnum, raw)
	}
	return s, nil
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Rank orders priorities by urgency: Low=1 ... Urgent=4. Unknown values rank 0.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if p == v {
			return i + 1
		}
	}
	return 0
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// OrDefault maps an empty priority to Medium, as legacy rows may lack one.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityMedium
	}
	return p
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: priority %q", ErrInvalidEnum, raw)
	}
	return p, nil
}
