package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/resend/resend-go/v3"

	"claim-comments/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendNewCommentEmail(ctx context.Context, to []string, comment *domain.Comment) error
	SendHiddenCommentsEmail(ctx context.Context, to []string, comments []domain.Comment) error
}

type Config struct {
	APIKey    string
	FromEmail string
}

type service struct {
	client *resend.Client
	from   string
}

// NewService sends through resend. httpClient may be nil.
func NewService(cfg Config, httpClient *http.Client) Service {
	client := resend.NewClient(cfg.APIKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, cfg.APIKey)
	}
	return &service{
		client: client,
		from:   fmt.Sprintf("Claim Comments <%s>", cfg.FromEmail),
	}
}

var funcs = template.FuncMap{
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

func render(templateName string, data any) (string, error) {
	tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		return "", fmt.Errorf("failed to parse email templates: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return body.String(), nil
}

func (s *service) send(ctx context.Context, to []string, subject, templateName string, data any) error {
	html, err := render(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Html:    html,
		Subject: subject,
	}

	_, err = s.client.Emails.SendWithContext(ctx, params)
	return err
}

func (s *service) SendNewCommentEmail(ctx context.Context, to []string, comment *domain.Comment) error {
	data := struct {
		Title   string
		Comment *domain.Comment
	}{
		Title:   "New comment",
		Comment: comment,
	}
	return s.send(ctx, to, "New comment on "+comment.ClaimID, "new_comment.html", data)
}

func (s *service) SendHiddenCommentsEmail(ctx context.Context, to []string, comments []domain.Comment) error {
	data := struct {
		Title    string
		Comments []domain.Comment
	}{
		Title:    "Comments hidden",
		Comments: comments,
	}
	return s.send(ctx, to, fmt.Sprintf("%d comment(s) hidden", len(comments)), "hidden_comments.html", data)
}
