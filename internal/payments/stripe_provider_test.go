package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type stubSessionAPI struct {
	newParams    *stripe.CheckoutSessionParams
	newResult    *stripe.CheckoutSession
	newErr       error
	getResult    *stripe.CheckoutSession
	getErr       error
	expiredID    string
	expireErr    error
	expireCalled bool
}

func (s *stubSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.newParams = params
	if s.newErr != nil {
		return nil, s.newErr
	}
	return s.newResult, nil
}

func (s *stubSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.getResult, nil
}

func (s *stubSessionAPI) Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error) {
	s.expireCalled = true
	s.expiredID = id
	if s.expireErr != nil {
		return nil, s.expireErr
	}
	return &stripe.CheckoutSession{ID: id, Status: stripe.CheckoutSessionStatusExpired}, nil
}

func newTestProvider(t *testing.T, api *stubSessionAPI) *StripeProvider {
	t.Helper()
	provider, err := NewStripeProvider(StripeProviderConfig{
		Sessions: api,
		Clock:    func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	return provider
}

func TestCreateCheckoutSession(t *testing.T) {
	api := &stubSessionAPI{
		newResult: &stripe.CheckoutSession{
			ID:            "cs_test_123",
			URL:           "https://checkout.stripe.test/cs_test_123",
			ExpiresAt:     time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC).Unix(),
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_123"},
		},
	}
	provider := newTestProvider(t, api)

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		OrderID:        "order-1",
		CustomerEmail:  "jordan@example.com",
		Currency:       "nzd",
		SuccessURL:     "https://portal.test/checkout/success",
		CancelURL:      "https://portal.test/checkout/cancel",
		IdempotencyKey: "idem-1",
		Items: []CheckoutItem{
			{Name: "DNA Test Kit", Quantity: 3, UnitAmount: 11000},
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}

	if session.ID != "cs_test_123" {
		t.Fatalf("unexpected session id %q", session.ID)
	}
	if session.RedirectURL != "https://checkout.stripe.test/cs_test_123" {
		t.Fatalf("unexpected redirect url %q", session.RedirectURL)
	}
	if session.IntentID != "pi_test_123" {
		t.Fatalf("unexpected intent id %q", session.IntentID)
	}
	if !session.ExpiresAt.Equal(time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}

	params := api.newParams
	if params == nil {
		t.Fatal("expected session params to be captured")
	}
	if got := stripe.StringValue(params.Mode); got != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %q", got)
	}
	if got := stripe.StringValue(params.CustomerEmail); got != "jordan@example.com" {
		t.Fatalf("unexpected customer email %q", got)
	}
	if params.Metadata["order_id"] != "order-1" {
		t.Fatalf("order id metadata missing: %v", params.Metadata)
	}
	if params.PaymentIntentData == nil || params.PaymentIntentData.Metadata["order_id"] != "order-1" {
		t.Fatal("order id must also ride on the payment intent metadata")
	}
	if len(params.LineItems) != 1 {
		t.Fatalf("expected one line item, got %d", len(params.LineItems))
	}
	line := params.LineItems[0]
	if got := stripe.Int64Value(line.Quantity); got != 3 {
		t.Fatalf("unexpected quantity %d", got)
	}
	if got := stripe.Int64Value(line.PriceData.UnitAmount); got != 11000 {
		t.Fatalf("unexpected unit amount %d", got)
	}
	if got := stripe.StringValue(line.PriceData.Currency); got != "nzd" {
		t.Fatalf("unexpected currency %q", got)
	}
}

func TestCreateCheckoutSessionRequiresItems(t *testing.T) {
	provider := newTestProvider(t, &stubSessionAPI{})
	_, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{OrderID: "order-1"})
	if err == nil {
		t.Fatal("expected error for empty line items")
	}
}

func TestLookupSessionStates(t *testing.T) {
	cases := []struct {
		name    string
		session *stripe.CheckoutSession
		want    Status
	}{
		{
			name: "paid",
			session: &stripe.CheckoutSession{
				ID:            "cs_1",
				PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
				Status:        stripe.CheckoutSessionStatusComplete,
			},
			want: StatusPaid,
		},
		{
			name: "unpaid open",
			session: &stripe.CheckoutSession{
				ID:            "cs_2",
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				Status:        stripe.CheckoutSessionStatusOpen,
			},
			want: StatusPending,
		},
		{
			name: "expired",
			session: &stripe.CheckoutSession{
				ID:            "cs_3",
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				Status:        stripe.CheckoutSessionStatusExpired,
			},
			want: StatusExpired,
		},
		{
			name: "canceled intent",
			session: &stripe.CheckoutSession{
				ID:            "cs_4",
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
				Status:        stripe.CheckoutSessionStatusOpen,
				PaymentIntent: &stripe.PaymentIntent{
					ID:     "pi_4",
					Status: stripe.PaymentIntentStatusCanceled,
				},
			},
			want: StatusFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newTestProvider(t, &stubSessionAPI{getResult: tc.session})
			state, err := provider.LookupSession(context.Background(), tc.session.ID)
			if err != nil {
				t.Fatalf("LookupSession: %v", err)
			}
			if state.Status != tc.want {
				t.Fatalf("got status %q, want %q", state.Status, tc.want)
			}
		})
	}
}

func TestLookupSessionNotFound(t *testing.T) {
	provider := newTestProvider(t, &stubSessionAPI{
		getErr: &stripe.Error{Code: stripe.ErrorCodeResourceMissing},
	})
	_, err := provider.LookupSession(context.Background(), "cs_missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestExpireSession(t *testing.T) {
	api := &stubSessionAPI{}
	provider := newTestProvider(t, api)

	if err := provider.ExpireSession(context.Background(), "cs_open"); err != nil {
		t.Fatalf("ExpireSession: %v", err)
	}
	if !api.expireCalled || api.expiredID != "cs_open" {
		t.Fatalf("expected expire call for cs_open, got %q", api.expiredID)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		0:       0,
		330:     33000,
		27.5:    2750,
		99.999:  10000,
		1234.56: 123456,
	}
	for amount, want := range cases {
		if got := MinorUnits(amount); got != want {
			t.Fatalf("MinorUnits(%v) = %d, want %d", amount, got, want)
		}
	}
}
