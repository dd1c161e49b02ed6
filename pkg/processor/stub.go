package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stub is an in-memory processor for development and tests. Charges created
// through it are served back by GetPaymentIntent and ListCharges.
type Stub struct {
	mu       sync.Mutex
	PageSize int
	Charges  []Charge
	Intents  map[string]PaymentIntent
}

func NewStub() *Stub {
	return &Stub{PageSize: 10, Intents: make(map[string]PaymentIntent)}
}

func (s *Stub) CreateCharge(ctx context.Context, req CreateChargeRequest) (*CreateChargeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chargeID := "ch_" + uuid.New().String()
	intentID := "pi_" + uuid.New().String()
	s.Charges = append(s.Charges, Charge{
		ID:              chargeID,
		PaymentIntentID: intentID,
		Amount:          req.AmountCents,
		Currency:        req.Currency,
		Description:     req.Description,
		OnBehalfOf:      req.OnBehalfOf,
		CustomerEmail:   req.CustomerEmail,
		Metadata:        req.Metadata,
		Created:         time.Now().Unix(),
	})
	s.Intents[intentID] = PaymentIntent{
		ID:             intentID,
		LatestChargeID: chargeID,
		Amount:         req.AmountCents,
		Currency:       req.Currency,
		Status:         "requires_payment_method",
		Metadata:       req.Metadata,
	}
	return &CreateChargeResponse{
		ChargeID:        chargeID,
		PaymentIntentID: intentID,
		CheckoutURL:     "https://pay.processor.example/c/" + chargeID,
		Status:          "pending",
	}, nil
}

func (s *Stub) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pi, ok := s.Intents[id]
	if !ok {
		return nil, fmt.Errorf("payment intent %s not found", id)
	}
	return &pi, nil
}

// AddIntent registers an intent so GetPaymentIntent can serve it. Test helper.
func (s *Stub) AddIntent(pi PaymentIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Intents[pi.ID] = pi
}

// AddCharge appends a charge to the listable history. Test helper.
func (s *Stub) AddCharge(ch Charge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Charges = append(s.Charges, ch)
}

func (s *Stub) ListCharges(ctx context.Context, accountID string, from, to time.Time, cursor string) (*ChargePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Charge
	for _, ch := range s.Charges {
		if ch.OnBehalfOf != accountID {
			continue
		}
		created := time.Unix(ch.Created, 0)
		if created.Before(from) || !created.Before(to) {
			continue
		}
		matched = append(matched, ch)
	}
	start := 0
	if cursor != "" {
		for i, ch := range matched {
			if ch.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + s.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	page := &ChargePage{Charges: matched[start:end], HasMore: end < len(matched)}
	if page.HasMore && end > 0 {
		page.NextCursor = matched[end-1].ID
	}
	return page, nil
}
