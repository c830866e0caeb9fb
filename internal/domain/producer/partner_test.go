package producer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/farmshop-backend/internal/config"
)

type fakeMailer struct {
	err     error
	to      string
	subject string
	body    string
}

func (m *fakeMailer) SendText(_ context.Context, to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testPayload() OrderPayload {
	return OrderPayload{
		ExternalReference: "ORD-20260830-AB12CD/T7",
		OrderNumber:       "ORD-20260830-AB12CD",
		Items: []Item{
			{SKU: "KOL-250", Quantity: 2, ProductName: "Cold-Pressed Rapeseed Oil", Size: "250 ml", WeightGrams: 960},
		},
		ShippingAddress: Address{
			FirstName:    "Anna",
			LastName:     "Huber",
			AddressLine1: "Hauptstrasse 1",
			City:         "Graz",
			PostalCode:   "8010",
			Country:      "AT",
		},
		CustomerEmail: "customer@example.com",
	}
}

func TestPartnerClientMethodSelection(t *testing.T) {
	api := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: "https://partner.example.com", APIKey: "secret"}, 0, nil, testLogger())
	assert.Equal(t, MethodAPI, api.Method())

	mail := NewPartnerClient(config.ProducerConfig{Key: "hernach", Email: "orders@hernach.example.com"}, 0, nil, testLogger())
	assert.Equal(t, MethodEmail, mail.Method())
}

func TestSendOrderViaAPI(t *testing.T) {
	var gotAuth string
	var gotPayload OrderPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"K-1001","status":"accepted"}`))
	}))
	defer server.Close()

	client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: server.URL, APIKey: "secret"}, 5*time.Second, nil, testLogger())

	result := client.SendOrder(context.Background(), testPayload())
	assert.True(t, result.Success)
	assert.Equal(t, "K-1001", result.ExternalID)
	assert.Equal(t, MethodAPI, result.Method)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "ORD-20260830-AB12CD/T7", gotPayload.ExternalReference)
	require.Len(t, gotPayload.Items, 1)
	assert.Equal(t, "KOL-250", gotPayload.Items[0].SKU)
}

func TestSendOrderViaAPIFallsBackToOrderID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"order_id":"K-1002"}`))
	}))
	defer server.Close()

	client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: server.URL, APIKey: "secret"}, 5*time.Second, nil, testLogger())
	result := client.SendOrder(context.Background(), testPayload())
	assert.True(t, result.Success)
	assert.Equal(t, "K-1002", result.ExternalID)
}

func TestSendOrderViaAPIFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantIn  string
	}{
		{
			"server error",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("boom"))
			},
			"status 500",
		},
		{
			"missing order id",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":"accepted"}`))
			},
			"no order id",
		},
		{
			"malformed response",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			"failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: server.URL, APIKey: "secret"}, 5*time.Second, nil, testLogger())
			result := client.SendOrder(context.Background(), testPayload())
			assert.False(t, result.Success)
			assert.Contains(t, result.Error, tt.wantIn)
		})
	}
}

func TestSendOrderViaAPIUnreachable(t *testing.T) {
	client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: "http://127.0.0.1:1", APIKey: "secret"}, time.Second, nil, testLogger())
	result := client.SendOrder(context.Background(), testPayload())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unreachable")
}

func TestSendOrderViaEmail(t *testing.T) {
	mailer := &fakeMailer{}
	client := NewPartnerClient(config.ProducerConfig{Key: "hernach", Email: "orders@hernach.example.com"}, 0, mailer, testLogger())

	result := client.SendOrder(context.Background(), testPayload())
	assert.True(t, result.Success)
	assert.Equal(t, MethodEmail, result.Method)
	assert.Empty(t, result.ExternalID)

	assert.Equal(t, "orders@hernach.example.com", mailer.to)
	assert.Equal(t, "New order ORD-20260830-AB12CD (ORD-20260830-AB12CD/T7)", mailer.subject)
	assert.Contains(t, mailer.body, "2x Cold-Pressed Rapeseed Oil (SKU KOL-250)")
	assert.Contains(t, mailer.body, "Anna Huber")
	assert.Contains(t, mailer.body, "8010 Graz")
}

func TestSendOrderViaEmailFailures(t *testing.T) {
	t.Run("no address configured", func(t *testing.T) {
		client := NewPartnerClient(config.ProducerConfig{Key: "hernach"}, 0, &fakeMailer{}, testLogger())
		result := client.SendOrder(context.Background(), testPayload())
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "no order email configured")
	})

	t.Run("mailer error", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("smtp down")}
		client := NewPartnerClient(config.ProducerConfig{Key: "hernach", Email: "orders@hernach.example.com"}, 0, mailer, testLogger())
		result := client.SendOrder(context.Background(), testPayload())
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "smtp down")
	})
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/K-1001", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"K-1001","status":"shipped"}`))
	}))
	defer server.Close()

	client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", APIBaseURL: server.URL, APIKey: "secret"}, 5*time.Second, nil, testLogger())
	status, err := client.GetStatus(context.Background(), "K-1001")
	require.NoError(t, err)
	assert.Equal(t, "shipped", status)

	_, err = client.GetStatus(context.Background(), "")
	assert.Error(t, err)
}

func TestGetStatusEmailMode(t *testing.T) {
	client := NewPartnerClient(config.ProducerConfig{Key: "hernach", Email: "orders@hernach.example.com"}, 0, &fakeMailer{}, testLogger())
	_, err := client.GetStatus(context.Background(), "whatever")
	assert.Error(t, err)
}

func TestRenderOrderSummaryDeterministic(t *testing.T) {
	payload := testPayload()
	payload.Notes = "leave at the door"
	first := RenderOrderSummary(payload)
	second := RenderOrderSummary(payload)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "Reference: ORD-20260830-AB12CD/T7")
	assert.Contains(t, first, "Notes: leave at the door")
}

func TestRegistry(t *testing.T) {
	registry := &Registry{}
	client := NewPartnerClient(config.ProducerConfig{Key: "kiendler", Email: "orders@kiendler.example.com"}, 0, &fakeMailer{}, testLogger())
	registry.Register(KeyKiendler, client)

	resolved, err := registry.Resolve(KeyKiendler)
	require.NoError(t, err)
	assert.Equal(t, client, resolved)

	_, err = registry.Resolve(KeyHernach)
	assert.Error(t, err)

	registry.Register(KeyHernach, client)
	assert.Equal(t, []Key{KeyHernach, KeyKiendler}, registry.Keys())
}
