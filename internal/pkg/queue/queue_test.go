package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	to     []string
	events []payment.PaymentsCalculatedEvent
	err    error
}

func (s *fakeSender) SendPaymentsCalculated(to string, event payment.PaymentsCalculatedEvent) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.events = append(s.events, event)
	return nil
}

func sampleEvent() payment.PaymentsCalculatedEvent {
	return payment.PaymentsCalculatedEvent{
		CompanyID: 7,
		RunID:     "run-1",
		Period: payment.PeriodResponse{
			StartDate:      "2024-01-01",
			EndDate:        "2024-01-31",
			Frequency:      payment.FrequencyMonthly,
			SequenceNumber: 1,
		},
		SuccessCount:   4,
		TotalEarnings:  decimal.RequireFromString("980.25"),
		ReviewDeadline: time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC),
		Recipient:      "finance@example.com",
	}
}

func TestPaymentsCalculatedTask_RoundTripsThroughHandler(t *testing.T) {
	task, err := NewPaymentsCalculatedTask(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, TaskTypePaymentsCalculated, task.Type())

	sender := &fakeSender{}
	require.NoError(t, NewPaymentsCalculatedHandler(sender)(context.Background(), task))

	require.Len(t, sender.events, 1)
	assert.Equal(t, []string{"finance@example.com"}, sender.to)
	assert.Equal(t, "run-1", sender.events[0].RunID)
	assert.True(t, sender.events[0].TotalEarnings.Equal(decimal.RequireFromString("980.25")))
}

func TestPaymentsCalculatedHandler_MalformedPayloadSkipsRetry(t *testing.T) {
	task := asynq.NewTask(TaskTypePaymentsCalculated, []byte("{not json"))

	err := NewPaymentsCalculatedHandler(&fakeSender{})(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPaymentsCalculatedHandler_InvalidRecipientSkipsRetry(t *testing.T) {
	for _, recipient := range []string{"", "finance", "finance@example.com\r\nBcc: x@example.com"} {
		event := sampleEvent()
		event.Recipient = recipient
		data, err := json.Marshal(event)
		require.NoError(t, err)

		sender := &fakeSender{}
		err = NewPaymentsCalculatedHandler(sender)(context.Background(), asynq.NewTask(TaskTypePaymentsCalculated, data))
		assert.ErrorIs(t, err, asynq.SkipRetry, "recipient=%q", recipient)
		assert.Empty(t, sender.events)
	}
}

func TestPaymentsCalculatedHandler_SenderErrorIsRetried(t *testing.T) {
	task, err := NewPaymentsCalculatedTask(sampleEvent())
	require.NoError(t, err)

	err = NewPaymentsCalculatedHandler(&fakeSender{err: errors.New("smtp down")})(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestNotifier_EnqueuesOnDefaultQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	notifier := NewNotifier(RedisOpt(mr.Addr(), "", 0))
	t.Cleanup(func() { _ = notifier.Close() })

	require.NoError(t, notifier.PaymentsCalculated(context.Background(), sampleEvent()))

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	pending, err := rdb.LLen(context.Background(), "asynq:{default}:pending").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestWorker_RunNil(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}
