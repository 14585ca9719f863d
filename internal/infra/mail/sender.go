package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var digestTemplate = template.Must(template.New("follow_up_digest").Funcs(template.FuncMap{
	"date": func(t time.Time, loc *time.Location) string {
		return t.In(loc).Format("1/2/2006")
	},
}).Parse(`<p>Hi {{.Name}},</p>
<p>You have {{len .Leads}} overdue follow-up(s):</p>
<table>
<tr><th>Lead</th><th>Company</th><th>Status</th><th>Priority</th><th>Follow-up</th></tr>
{{- range .Leads}}
<tr><td>{{.Name}}</td><td>{{.Company}}</td><td>{{.Status}}</td><td>{{.Priority}}</td><td>{{date .FollowUpDate $.Loc}}</td></tr>
{{- end}}
</table>
`))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

// SendFollowUpDigest mails one assignee the list of leads whose follow-up
// date has passed.
func (s *EmailSender) SendFollowUpDigest(to string, data FollowUpDigestData) error {
	if data.Loc == nil {
		data.Loc = time.UTC
	}

	body, err := renderDigest(data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("%d overdue follow-up(s) waiting for you", len(data.Leads)))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send digest via SMTP: %w", err)
	}
	return nil
}

func renderDigest(data FollowUpDigestData) (string, error) {
	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to render digest template: %w", err)
	}
	return body.String(), nil
}
