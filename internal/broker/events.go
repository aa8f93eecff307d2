package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"shop-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishWorkOrderCreated publishes WorkOrderCreated event
func (ep *EventPublisher) PublishWorkOrderCreated(ctx context.Context, event *models.WorkOrderCreatedEvent) error {
	key := fmt.Sprintf("work-order-%d", event.WorkOrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWorkOrderRebuilt publishes WorkOrderRebuilt event
func (ep *EventPublisher) PublishWorkOrderRebuilt(ctx context.Context, event *models.WorkOrderRebuiltEvent) error {
	key := fmt.Sprintf("work-order-%d", event.WorkOrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishAllocationCompleted publishes AllocationCompleted event
func (ep *EventPublisher) PublishAllocationCompleted(ctx context.Context, event *models.AllocationCompletedEvent) error {
	key := fmt.Sprintf("work-order-%d", event.WorkOrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming allocation job messages
type EventHandler struct {
	onWorkOrderCreated func(context.Context, *models.WorkOrderCreatedEvent) error
	onWorkOrderRebuilt func(context.Context, *models.WorkOrderRebuiltEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnWorkOrderCreated registers a handler for WorkOrderCreated events
func (eh *EventHandler) OnWorkOrderCreated(handler func(context.Context, *models.WorkOrderCreatedEvent) error) {
	eh.onWorkOrderCreated = handler
}

// OnWorkOrderRebuilt registers a handler for WorkOrderRebuilt events
func (eh *EventHandler) OnWorkOrderRebuilt(handler func(context.Context, *models.WorkOrderRebuiltEvent) error) {
	eh.onWorkOrderRebuilt = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeWorkOrderCreated:
		if eh.onWorkOrderCreated != nil {
			var event models.WorkOrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WorkOrderCreated event: %w", err)
			}
			return eh.onWorkOrderCreated(ctx, &event)
		}

	case models.EventTypeWorkOrderRebuilt:
		if eh.onWorkOrderRebuilt != nil {
			var event models.WorkOrderRebuiltEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WorkOrderRebuilt event: %w", err)
			}
			return eh.onWorkOrderRebuilt(ctx, &event)
		}

	case models.EventTypeAllocationCompleted:
		// Published for downstream consumers; nothing to do here.

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
