package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PaymentMethodDetails describes how the payer paid.
type PaymentMethodDetails struct {
	Type  string `json:"type"`
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// Charge mirrors the processor's charge object, reduced to the fields the
// ledger consumes. Amounts are minor units.
type Charge struct {
	ID              string               `json:"id"`
	PaymentIntentID string               `json:"payment_intent"`
	Amount          int64                `json:"amount"`
	AmountRefunded  int64                `json:"amount_refunded"`
	Currency        string               `json:"currency"`
	Paid            bool                 `json:"paid"`
	Refunded        bool                 `json:"refunded"`
	Status          string               `json:"status"`
	Description     string               `json:"description"`
	ReceiptURL      string               `json:"receipt_url"`
	FailureCode     string               `json:"failure_code"`
	FailureMessage  string               `json:"failure_message"`
	NetAmount       *int64               `json:"net_amount"`
	OnBehalfOf      string               `json:"on_behalf_of"`
	CustomerEmail   string               `json:"customer_email"`
	Metadata        map[string]string    `json:"metadata"`
	PaymentMethod   PaymentMethodDetails `json:"payment_method_details"`
	Created         int64                `json:"created"` // unix seconds
}

// PaymentIntent mirrors the processor's intent object.
type PaymentIntent struct {
	ID             string            `json:"id"`
	LatestChargeID string            `json:"latest_charge"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Status         string            `json:"status"`
	FailureCode    string            `json:"last_payment_error_code"`
	FailureMessage string            `json:"last_payment_error_message"`
	Metadata       map[string]string `json:"metadata"`
}

// Event is one asynchronous processor notification. Exactly one of Charge
// and PaymentIntent is set, depending on the event type.
type Event struct {
	ID            string
	Type          string
	Charge        *Charge
	PaymentIntent *PaymentIntent
}

type rawEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a webhook payload. Charge-prefixed event types carry a
// charge object; everything else carries a payment intent.
func ParseEvent(body []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("parse event: missing type")
	}
	ev := &Event{ID: raw.ID, Type: raw.Type}
	if len(raw.Data.Object) == 0 {
		return nil, fmt.Errorf("parse event %s: missing object", raw.Type)
	}
	if strings.HasPrefix(raw.Type, "charge.") {
		var ch Charge
		if err := json.Unmarshal(raw.Data.Object, &ch); err != nil {
			return nil, fmt.Errorf("parse event %s: %w", raw.Type, err)
		}
		ev.Charge = &ch
	} else {
		var pi PaymentIntent
		if err := json.Unmarshal(raw.Data.Object, &pi); err != nil {
			return nil, fmt.Errorf("parse event %s: %w", raw.Type, err)
		}
		ev.PaymentIntent = &pi
	}
	return ev, nil
}

// CreateChargeRequest creates a destination charge on behalf of a connected
// account, with the frozen fee decision stamped into the metadata.
type CreateChargeRequest struct {
	AmountCents         int64             `json:"amount"`
	Currency            string            `json:"currency"`
	Description         string            `json:"description"`
	OnBehalfOf          string            `json:"on_behalf_of"`
	ApplicationFeeCents int64             `json:"application_fee_amount"`
	CustomerEmail       string            `json:"customer_email"`
	Metadata            map[string]string `json:"metadata"`
	IdempotencyKey      string            `json:"-"`
}

type CreateChargeResponse struct {
	ChargeID        string `json:"charge_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	CheckoutURL     string `json:"checkout_url"`
	Status          string `json:"status"`
}

// ChargePage is one page of charge history.
type ChargePage struct {
	Charges    []Charge `json:"data"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

// Client is the outbound surface of the payment processor. Webhook
// deliveries come in separately through ParseEvent.
type Client interface {
	CreateCharge(ctx context.Context, req CreateChargeRequest) (*CreateChargeResponse, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// ListCharges pages through charges created on behalf of the given
	// connected account inside [from, to). Pass the previous page's
	// NextCursor to continue.
	ListCharges(ctx context.Context, accountID string, from, to time.Time, cursor string) (*ChargePage, error)
}
