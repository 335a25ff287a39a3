package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"referral-intake/domain"
)

// fakeAcknowledger records what the consumer did with a delivery.
type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func delivery(t *testing.T, ack amqp.Acknowledger, body any) amqp.Delivery {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: raw}
}

var sampleEvent = domain.ReferralEvent{
	Type:          domain.EventSubmitted,
	ReferralID:    7,
	CandidateName: "Jane Doe",
	Status:        domain.StatusPending,
	FitScore:      8,
	ScoringStatus: domain.ScoringStatusScored,
	OccurredAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
}

func TestHandleDelivery_AcksHandledEvent(t *testing.T) {
	ack := &fakeAcknowledger{}
	var got domain.ReferralEvent

	handleDelivery(context.Background(), delivery(t, ack, sampleEvent), func(_ context.Context, ev domain.ReferralEvent) error {
		got = ev
		return nil
	}, zap.NewNop())

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)
	assert.Equal(t, sampleEvent, got)
}

func TestHandleDelivery_DropsMalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   "{{{",
		"no type":    `{"referral_id": 3}`,
		"wrong type": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			core, logs := observer.New(zap.WarnLevel)
			called := false

			handleDelivery(context.Background(), delivery(t, ack, body), func(context.Context, domain.ReferralEvent) error {
				called = true
				return nil
			}, zap.New(core))

			assert.False(t, called)
			assert.Equal(t, 1, ack.nacked)
			assert.False(t, ack.requeue)
			assert.Equal(t, 1, logs.FilterMessage("Dropping malformed event").Len())
		})
	}
}

func TestHandleDelivery_RequeuesOnceOnHandlerFailure(t *testing.T) {
	failingHandler := func(context.Context, domain.ReferralEvent) error { return errors.New("smtp down") }

	first := &fakeAcknowledger{}
	handleDelivery(context.Background(), delivery(t, first, sampleEvent), failingHandler, zap.NewNop())
	assert.Equal(t, 1, first.nacked)
	assert.True(t, first.requeue)

	second := &fakeAcknowledger{}
	d := delivery(t, second, sampleEvent)
	d.Redelivered = true
	handleDelivery(context.Background(), d, failingHandler, zap.NewNop())
	assert.Equal(t, 1, second.nacked)
	assert.False(t, second.requeue)
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), sampleEvent))
}
