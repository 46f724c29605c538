package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultMailFrom = "no-reply@adstash.app"

type Email struct {
	To          []string
	From        string
	CC          []string
	BCC         []string
	Subject     string
	Body        string
	Attachments []EmailAttachment
}

type EmailAttachment struct {
	Name        string
	ContentType string
	Content     []byte
}

type TokenCreatedEmailData struct {
	Title       string
	URL         string
	CurrentYear string

	UserName    string
	TokenName   string
	TokenPrefix string
	CreatedAt   string
	ExpiresAt   string
}

//go:embed templates/*
var templates embed.FS

var tokenCreatedTmpl = template.Must(template.ParseFS(
	templates,
	"templates/base.html",
	"templates/token_created.html",
))

// SendTokenCreatedEmail tells the owner a new access token exists. Owners
// without an email address, and deployments without SMTP, are skipped.
func (u Usecase) SendTokenCreatedEmail(ctx context.Context, userID, tokenID uuid.UUID) error {
	if u.mailer == nil {
		slog.InfoContext(ctx, "mailer not configured, skipping token notice", "token_id", tokenID)
		return nil
	}
	user, err := u.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}

	tokens, err := u.repo.ListAccessTokens(ctx, userID)
	if err != nil {
		return err
	}
	var token *AccessToken
	for i := range tokens {
		if tokens[i].ID == tokenID {
			token = &tokens[i]
			break
		}
	}
	if token == nil {
		return fmt.Errorf("token %s: %w", tokenID, ErrNotFound)
	}

	body, err := buildTokenCreatedEmailBody(user, *token)
	if err != nil {
		return err
	}

	from := u.mailFrom
	if from == "" {
		from = defaultMailFrom
	}
	return u.mailer.SendEmail(ctx, Email{
		To:      []string{user.Email},
		From:    from,
		Subject: "New AdStash access token",
		Body:    body,
	})
}

func buildTokenCreatedEmailBody(user User, t AccessToken) (string, error) {
	data := TokenCreatedEmailData{
		Title:       "New access token",
		URL:         "https://adstash.app/settings/tokens",
		CurrentYear: time.Now().Format("2006"),
		UserName:    user.Name,
		TokenName:   t.Name,
		TokenPrefix: t.Prefix,
		CreatedAt:   t.CreatedAt.Format("2006-01-02 03:04 PM"),
		ExpiresAt:   "never",
	}
	if data.UserName == "" {
		data.UserName = user.Email
	}
	if t.ExpiresAt != nil {
		data.ExpiresAt = t.ExpiresAt.Format("2006-01-02 03:04 PM")
	}

	var buf bytes.Buffer
	if err := tokenCreatedTmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
