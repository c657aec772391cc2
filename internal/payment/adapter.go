package payment

import (
	"encoding/json"
	"fmt"
)

// Raw wire shapes for the gateway's webhook payload. Only the fields the
// reconciliation flow needs are decoded; everything else is ignored.
type rawWebhook struct {
	NotificationItems []struct {
		NotificationRequestItem struct {
			EventID   string `json:"eventId"`
			EventType string `json:"eventType"`
			Data      struct {
				Reference  string `json:"reference"`
				PayerEmail string `json:"payerEmail"`
			} `json:"data"`
		} `json:"notificationRequestItem"`
	} `json:"notificationItems"`
}

// Provider event-type strings, normalized to the three variants the
// calculator understands.
var eventTypes = map[string]EventType{
	"transaction":                 EventSingle,
	"transaction.recurrent":       EventRecurringFirst,
	"transaction.recurring.debit": EventRecurringDebit,
}

// Normalize translates an opaque provider payload into a GatewayNotification.
// It performs no side effects beyond parsing.
//
// Errors: ErrMalformedPayload when a required field is absent,
// ErrUnsupportedEventType for event types outside the known set (soft; the
// caller acks and skips, matching at-least-once delivery).
func Normalize(payload []byte) (GatewayNotification, error) {
	var raw rawWebhook
	if err := json.Unmarshal(payload, &raw); err != nil {
		return GatewayNotification{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(raw.NotificationItems) == 0 {
		return GatewayNotification{}, fmt.Errorf("%w: no notification items", ErrMalformedPayload)
	}

	item := raw.NotificationItems[0].NotificationRequestItem
	switch {
	case item.EventID == "":
		return GatewayNotification{}, fmt.Errorf("%w: missing event id", ErrMalformedPayload)
	case item.EventType == "":
		return GatewayNotification{}, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	case item.Data.Reference == "":
		return GatewayNotification{}, fmt.Errorf("%w: missing reference", ErrMalformedPayload)
	case item.Data.PayerEmail == "":
		return GatewayNotification{}, fmt.Errorf("%w: missing payer email", ErrMalformedPayload)
	}

	eventType, ok := eventTypes[item.EventType]
	if !ok {
		return GatewayNotification{}, fmt.Errorf("%w: %q", ErrUnsupportedEventType, item.EventType)
	}

	return GatewayNotification{
		EventID:    item.EventID,
		EventType:  eventType,
		Reference:  item.Data.Reference,
		PayerEmail: item.Data.PayerEmail,
	}, nil
}
