package mail

import "time"

// DigestLead is one overdue lead in a follow-up digest.
type DigestLead struct {
	ID           string
	Name         string
	Company      string
	Status       string
	Priority     string
	FollowUpDate time.Time
}

type FollowUpDigestData struct {
	Name  string
	Leads []DigestLead
	Loc   *time.Location
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string

	dialer dialer
}
