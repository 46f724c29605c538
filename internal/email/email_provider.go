package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/adstash/adstash/internal/usecase"
	"github.com/wneessen/go-mail"
)

var _ usecase.MailProvider = (*EmailProvider)(nil)

func NewEmailProvider(smtpHost, smtpUser, smtpPassword, smtpPort string) (*EmailProvider, error) {
	if smtpHost == "" || smtpUser == "" || smtpPassword == "" || smtpPort == "" {
		return nil, errors.New("email: SMTP host, port, user and password must be provided")
	}

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP port: %w", err)
	}

	client, err := mail.NewClient(
		smtpHost,
		mail.WithPort(port),
		mail.WithUsername(smtpUser),
		mail.WithPassword(smtpPassword),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("email: failed to create SMTP client: %w", err)
	}

	return &EmailProvider{client: client}, nil
}

type EmailProvider struct {
	client *mail.Client
}

// SendEmail delivers synchronously so a failed send is retried by the queue.
func (e *EmailProvider) SendEmail(ctx context.Context, email usecase.Email) error {
	msg, err := buildMsg(email)
	if err != nil {
		return err
	}
	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: failed to send: %w", err)
	}
	return nil
}

func buildMsg(email usecase.Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, fmt.Errorf("email: invalid from: %w", err)
	}
	if err := msg.To(email.To...); err != nil {
		return nil, fmt.Errorf("email: invalid to: %w", err)
	}
	if len(email.CC) > 0 {
		if err := msg.Cc(email.CC...); err != nil {
			return nil, fmt.Errorf("email: invalid cc: %w", err)
		}
	}
	if len(email.BCC) > 0 {
		if err := msg.Bcc(email.BCC...); err != nil {
			return nil, fmt.Errorf("email: invalid bcc: %w", err)
		}
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.Body)
	for _, file := range email.Attachments {
		if err := msg.AttachReader(
			file.Name,
			bytes.NewReader(file.Content),
			mail.WithFileContentType(mail.ContentType(file.ContentType)),
		); err != nil {
			slog.Warn("email: failed to attach file", "name", file.Name, "err", err)
		}
	}
	return msg, nil
}
