package alerting

import (
	"fmt"
	"net/smtp"
	"strings"
)

// EmailSender delivers alerts over SMTP with plain auth.
type EmailSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

func (s EmailSender) Send(a Alert) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + strings.Join(s.To, ", "),
		fmt.Sprintf("Subject: [nemscan/%s] %s", a.Source, a.Title),
		"",
		a.Message,
		"",
		"at " + a.Time.Format("2006-01-02 15:04:05"),
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	return smtp.SendMail(addr, auth, s.From, s.To, []byte(msg))
}
