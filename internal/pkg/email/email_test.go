package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payments-go/internal/config"
	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() payment.PaymentsCalculatedEvent {
	return payment.PaymentsCalculatedEvent{
		CompanyID: 10,
		RunID:     "run-42",
		Period: payment.PeriodResponse{
			StartDate:      "2024-01-08",
			EndDate:        "2024-01-14",
			Frequency:      payment.FrequencyWeekly,
			SequenceNumber: 2,
		},
		SuccessCount:   3,
		FailureCount:   1,
		TotalEarnings:  decimal.RequireFromString("1250.5"),
		ReviewDeadline: time.Date(2024, 1, 14, 18, 0, 0, 0, time.UTC),
		Recipient:      "payroll@example.com",
	}
}

type recordedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(t *testing.T, cfg config.SMTPConfig, failures int) (*emailServiceImpl, *[]recordedMail) {
	t.Helper()
	svc, err := NewEmailService(cfg)
	require.NoError(t, err)

	impl := svc.(*emailServiceImpl)
	impl.backoff = func(int) time.Duration { return 0 }

	var sent []recordedMail
	calls := 0
	impl.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		calls++
		if calls <= failures {
			return errors.New("connection refused")
		}
		sent = append(sent, recordedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return impl, &sent
}

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "no-reply@example.com",
		FromName: "HRIS Payroll",
	}
}

func TestRenderPaymentsCalculated(t *testing.T) {
	svc, _ := newTestService(t, smtpConfig(), 0)

	body, err := svc.renderPaymentsCalculated(testEvent())
	require.NoError(t, err)

	assert.Contains(t, body, "2024-01-08")
	assert.Contains(t, body, "2024-01-14")
	assert.Contains(t, body, "1250.50")
	assert.Contains(t, body, "2024-01-14 18:00 UTC")
	assert.Contains(t, body, "run-42")
	assert.Contains(t, body, "could not be calculated")
}

func TestRenderPaymentsCalculated_NoFailures(t *testing.T) {
	svc, _ := newTestService(t, smtpConfig(), 0)
	event := testEvent()
	event.FailureCount = 0

	body, err := svc.renderPaymentsCalculated(event)
	require.NoError(t, err)
	assert.NotContains(t, body, "could not be calculated")
}

func TestSendPaymentsCalculated(t *testing.T) {
	svc, sent := newTestService(t, smtpConfig(), 0)

	require.NoError(t, svc.SendPaymentsCalculated("payroll@example.com", testEvent()))
	require.Len(t, *sent, 1)

	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "no-reply@example.com", mail.from)
	assert.Equal(t, []string{"payroll@example.com"}, mail.to)
	assert.True(t, strings.HasPrefix(mail.msg, "From: HRIS Payroll <no-reply@example.com>\r\n"))
	assert.Contains(t, mail.msg, "Subject: Payments calculated for 2024-01-08 to 2024-01-14\r\n")
}

func TestSendPaymentsCalculated_RejectsLineBreakInRecipient(t *testing.T) {
	svc, sent := newTestService(t, smtpConfig(), 0)

	err := svc.SendPaymentsCalculated("payroll@example.com\r\nBcc: attacker@example.com", testEvent())
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Empty(t, *sent)
}

func TestSendPaymentsCalculated_StripsLineBreaksFromHeaders(t *testing.T) {
	cfg := smtpConfig()
	cfg.FromName = "HRIS\r\nBcc: attacker@example.com"
	svc, sent := newTestService(t, cfg, 0)

	event := testEvent()
	event.Period.StartDate = "2024-01-08\r\nX-Injected: yes"
	require.NoError(t, svc.SendPaymentsCalculated("payroll@example.com", event))
	require.Len(t, *sent, 1)

	headers := strings.SplitN((*sent)[0].msg, "\r\n\r\n", 2)[0]
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.NotContains(t, headers, "\r\nX-Injected:")
	assert.Len(t, strings.Split(headers, "\r\n"), 5)
}

func TestSendPaymentsCalculated_RetriesThenSucceeds(t *testing.T) {
	svc, sent := newTestService(t, smtpConfig(), 2)

	require.NoError(t, svc.SendPaymentsCalculated("payroll@example.com", testEvent()))
	assert.Len(t, *sent, 1)
}

func TestSendPaymentsCalculated_GivesUpAfterMaxRetries(t *testing.T) {
	svc, sent := newTestService(t, smtpConfig(), maxRetries)

	err := svc.SendPaymentsCalculated("payroll@example.com", testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Empty(t, *sent)
}

func TestSendPaymentsCalculated_SkipsWithoutHost(t *testing.T) {
	cfg := smtpConfig()
	cfg.Host = ""
	svc, sent := newTestService(t, cfg, 0)

	require.NoError(t, svc.SendPaymentsCalculated("payroll@example.com", testEvent()))
	assert.Empty(t, *sent)
}
