package delivery

import (
	"context"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/go-verify-nosql/internal/domain"
	"github.com/go-verify-nosql/internal/infrastructure/smtp"
)

// Service delivers freshly issued codes to the user out of band.
type Service interface {
	SendCode(ctx context.Context, email string, purpose domain.Purpose, code string, expiresAt time.Time) error
}

type service struct {
	mailer smtp.Mailer
	now    func() time.Time
}

func NewService(mailer smtp.Mailer) Service {
	return &service{mailer: mailer, now: time.Now}
}

var codeEmail = template.Must(template.New("code").Parse(`
<h3>{{.Title}}</h3>
<p>Your verification code is: <strong>{{.Code}}</strong></p>
<p>It expires in {{.Minutes}} minute{{if ne .Minutes 1}}s{{end}}.</p>
<p>If you did not request this, you can ignore this email.</p>
`))

func (s *service) SendCode(ctx context.Context, email string, purpose domain.Purpose, code string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	minutes := int(math.Ceil(expiresAt.Sub(s.now()).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	subject := subjectFor(purpose)
	var body strings.Builder
	if err := codeEmail.Execute(&body, struct {
		Title   string
		Code    string
		Minutes int
	}{subject, code, minutes}); err != nil {
		return fmt.Errorf("render code email: %w", err)
	}
	if err := s.mailer.SendEmail(email, subject, body.String()); err != nil {
		return fmt.Errorf("deliver %s code: %w", purpose, err)
	}
	return nil
}

func subjectFor(purpose domain.Purpose) string {
	switch purpose {
	case domain.PurposePasswordReset:
		return "Password reset code"
	case domain.PurposeTwoStepVerification:
		return "Your sign-in verification code"
	default:
		return "Your verification code"
	}
}
