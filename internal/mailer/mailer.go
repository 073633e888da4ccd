package mailer

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed "templates"
var templateFS embed.FS

// Mailer holds a mail.Dialer instance (used to connect to a SMTP server) and
// the sender information for outgoing emails.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// New returns a Mailer which dials the SMTP server with a 5-second timeout.
func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return Mailer{
		dialer: dialer,
		sender: sender,
	}
}

// Send renders templateFile with data and sends it to recipient. The template
// must define "subject", "plainBody" and "htmlBody".
func (m Mailer) Send(recipient, templateFile string, data any) error {
	msg, err := m.render(recipient, templateFile, data)
	if err != nil {
		return err
	}

	// Try sending the email up to three times before aborting and returning
	// the final error.
	for i := 1; i <= 3; i++ {
		err = m.dialer.DialAndSend(msg)
		if nil == err {
			return nil
		}

		time.Sleep(500 * time.Millisecond)
	}

	return err
}

func (m Mailer) render(recipient, templateFile string, data any) (*mail.Message, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	subject := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}

	plainBody := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}

	htmlBody := new(bytes.Buffer)
	if err = tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	return msg, nil
}
