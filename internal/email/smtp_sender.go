package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender envía correos vía SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
	}, nil
}

func (s *SMTPSender) SendVerification(_ context.Context, toEmail, name, link string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease verify your email address by visiting:\n%s\n\nThe link expires in 24 hours.\n",
		greetingName(name),
		link,
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, toEmail, name, link string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hi %s,\n\nYou requested a password reset. Visit:\n%s\n\nThe link expires in 1 hour. If you did not request this, ignore this email.\n",
		greetingName(name),
		link,
	)
	return s.send(toEmail, subject, body)
}

func (s *SMTPSender) send(toEmail, subject, body string) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}

	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.useTLS {
		conn, err := tls.Dial("tcp", addr, &tls.Config{
			ServerName: s.host,
		})
		if err != nil {
			return err
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if auth != nil {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
		if err := client.Mail(s.from); err != nil {
			return err
		}
		if err := client.Rcpt(toEmail); err != nil {
			return err
		}
		writer, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := writer.Write([]byte(msg)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	}

	return smtp.SendMail(addr, auth, s.from, []string{toEmail}, []byte(msg))
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
