package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caseflow/caseflow/pkg/eventbus"
	"github.com/caseflow/caseflow/pkg/model"
)

// Notification is a structured send request handed to the delivery system.
// Delivery itself (email, SMS, in-app) is outside this service.
type Notification struct {
	OrganizationID uuid.UUID              `json:"organization_id"`
	RecipientID    string                 `json:"recipient_id,omitempty"`
	RecipientEmail string                 `json:"recipient_email,omitempty"`
	Type           string                 `json:"type"`
	Priority       model.Priority         `json:"priority"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	ActionURL      string                 `json:"action_url,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Dispatcher accepts send requests fire-and-forget style. Implementations
// must not make callers wait on delivery; a failed Send is logged by the
// caller, never propagated into workflow outcomes.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// BusDispatcher publishes notifications onto the redis event bus, where the
// delivery worker picks them up.
type BusDispatcher struct {
	bus    *eventbus.Bus
	logger *zap.Logger
}

func NewBusDispatcher(bus *eventbus.Bus, logger *zap.Logger) *BusDispatcher {
	return &BusDispatcher{bus: bus, logger: logger}
}

func (d *BusDispatcher) Send(ctx context.Context, n Notification) error {
	event, err := eventbus.NewEvent("notification_requested", n)
	if err != nil {
		return err
	}
	return d.bus.Publish(ctx, eventbus.ChannelNotification, event)
}

// LogDispatcher just logs the request. Used in development and as a
// fallback when redis is not configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, n Notification) error {
	d.logger.Info("notification",
		zap.String("type", n.Type),
		zap.String("recipient", n.RecipientID),
		zap.String("title", n.Title))
	return nil
}
