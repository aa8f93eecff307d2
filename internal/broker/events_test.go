package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shop-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageRoutesWorkOrderCreated(t *testing.T) {
	eh := NewEventHandler()

	var got *models.WorkOrderCreatedEvent
	eh.OnWorkOrderCreated(func(ctx context.Context, e *models.WorkOrderCreatedEvent) error {
		got = e
		return nil
	})

	event := &models.WorkOrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeWorkOrderCreated,
			Timestamp: time.Now(),
		},
		WorkOrderID: 42,
		Lines: []models.PartLineData{
			{SKU: "BRK-100", Quantity: 2},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.WorkOrderID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "BRK-100", got.Lines[0].SKU)
}

func TestHandleMessageRoutesWorkOrderRebuilt(t *testing.T) {
	eh := NewEventHandler()

	var got *models.WorkOrderRebuiltEvent
	eh.OnWorkOrderRebuilt(func(ctx context.Context, e *models.WorkOrderRebuiltEvent) error {
		got = e
		return nil
	})

	event := &models.WorkOrderRebuiltEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeWorkOrderRebuilt,
		},
		WorkOrderID: 7,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.WorkOrderID)
}

func TestHandleMessageMalformedPayload(t *testing.T) {
	eh := NewEventHandler()

	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestHandleMessageUnknownTypeIgnored(t *testing.T) {
	eh := NewEventHandler()

	payload, err := json.Marshal(models.BaseEvent{EventID: "evt-3", EventType: "SOMETHING_ELSE"})
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	assert.NoError(t, err)
}
