package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/config"
	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// ErrInvalidRecipient is returned for addresses that would break the message headers.
var ErrInvalidRecipient = errors.New("invalid email recipient")

var headerNewlines = strings.NewReplacer("\r", "", "\n", "")

// EmailService defines the interface for sending emails
type EmailService interface {
	SendPaymentsCalculated(to string, event payment.PaymentsCalculatedEvent) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type emailServiceImpl struct {
	cfg       config.SMTPConfig
	templates *template.Template
	send      sendFunc
	backoff   func(attempt int) time.Duration
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg config.SMTPConfig) (EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &emailServiceImpl{
		cfg:       cfg,
		templates: tmpl,
		send:      smtp.SendMail,
		backoff: func(attempt int) time.Duration {
			// 1s, 2s, 4s
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}, nil
}

type paymentsCalculatedEmailData struct {
	RunID          string
	PeriodStart    string
	PeriodEnd      string
	PeriodNumber   int
	Frequency      string
	SuccessCount   int
	FailureCount   int
	TotalEarnings  string
	ReviewDeadline string
}

// SendPaymentsCalculated tells the company's payroll contact that a run is ready for review
func (s *emailServiceImpl) SendPaymentsCalculated(to string, event payment.PaymentsCalculatedEvent) error {
	body, err := s.renderPaymentsCalculated(event)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Payments calculated for %s to %s", event.Period.StartDate, event.Period.EndDate)
	return s.sendHTML(to, subject, body)
}

func (s *emailServiceImpl) renderPaymentsCalculated(event payment.PaymentsCalculatedEvent) (string, error) {
	data := paymentsCalculatedEmailData{
		RunID:          event.RunID,
		PeriodStart:    event.Period.StartDate,
		PeriodEnd:      event.Period.EndDate,
		PeriodNumber:   event.Period.SequenceNumber,
		Frequency:      string(event.Period.Frequency),
		SuccessCount:   event.SuccessCount,
		FailureCount:   event.FailureCount,
		TotalEarnings:  event.TotalEarnings.StringFixed(2),
		ReviewDeadline: event.ReviewDeadline.UTC().Format("2006-01-02 15:04 MST"),
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "payments_calculated.html", data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func (s *emailServiceImpl) sendHTML(to, subject, htmlBody string) error {
	// Skip sending if SMTP is not configured
	if s.cfg.Host == "" {
		slog.Warn("SMTP not configured, skipping email send", "to", to, "subject", subject)
		return nil
	}

	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%w: address contains a line break", ErrInvalidRecipient)
	}

	from := s.cfg.From

	headers := fmt.Sprintf("From: %s <%s>\r\n", headerNewlines.Replace(s.cfg.FromName), headerNewlines.Replace(from))
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", headerNewlines.Replace(subject))
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, from, []string{to}, message)
		if err == nil {
			slog.Info("Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Error("Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		if attempt < maxRetries {
			time.Sleep(s.backoff(attempt))
		}
	}

	return fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}
