// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/farmshop-backend/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config *config.Config
	client *http.Client
	logger *logrus.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	return &EmailService{
		config: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendText sends a plain-text email. Producer order channels rely on
// plain text so the receiving side can be anything from a mail client to
// a script.
func (s *EmailService) SendText(ctx context.Context, to, subject, body string) error {
	return s.SendEmail(ctx, &Email{
		To:          []string{to},
		Subject:     subject,
		TextContent: body,
		Type:        EmailTypeProducerOrder,
	})
}

// SendOrderConfirmationEmail sends the customer order confirmation.
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	htmlContent, err := renderOrderConfirmation(data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.CustomerEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

var orderConfirmationTemplate = template.Must(template.New("order_confirmation").
	Funcs(template.FuncMap{"euros": formatCents}).
	Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Order {{.OrderNumber}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto;">
    <h1>Thank you{{if .FirstName}}, {{.FirstName}}{{end}}!</h1>
    <p>We received your order <strong>{{.OrderNumber}}</strong>.</p>
    <table style="width: 100%; border-collapse: collapse;">
      {{range .Items}}
      <tr>
        <td style="padding: 4px 0;">{{.Quantity}}&times; {{.Name}}{{if .VariantName}} ({{.VariantName}}){{end}}</td>
        <td style="text-align: right;">{{euros .LineTotalCents}}</td>
      </tr>
      {{end}}
      <tr><td style="padding-top: 8px;">Shipping</td><td style="text-align: right;">{{euros .ShippingCents}}</td></tr>
      <tr><td style="padding-top: 8px;"><strong>Total</strong></td><td style="text-align: right;"><strong>{{euros .TotalCents}}</strong></td></tr>
    </table>
    <p>You will receive tracking details once your order ships.</p>
  </div>
</body>
</html>`))

func renderOrderConfirmation(data OrderConfirmationData) (string, error) {
	var buf bytes.Buffer
	if err := orderConfirmationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d EUR", sign, cents/100, cents%100)
}
