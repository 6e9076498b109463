package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procuredesk/procuredesk/internal/billing"
	"github.com/procuredesk/procuredesk/internal/billing/razorpay"
)

func TestPaymentGatewayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_abc","amount":11850000,"currency":"INR","receipt":"rcpt_1","status":"created"}`))
	}))
	defer srv.Close()

	var gateway billing.Gateway = NewPaymentGateway(razorpay.New("key_id", "key_secret").WithBaseURL(srv.URL))

	order, err := gateway.CreateOrder(context.Background(), decimal.RequireFromString("118500.00"), "rcpt_1")
	require.NoError(t, err)
	require.Equal(t, billing.GatewayOrder{ID: "order_abc", Amount: 11850000, Currency: "INR"}, order)
}

func TestPaymentGatewayVerifySignature(t *testing.T) {
	gateway := NewPaymentGateway(razorpay.New("key_id", "key_secret"))

	mac := hmac.New(sha256.New, []byte("key_secret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	good := hex.EncodeToString(mac.Sum(nil))

	require.True(t, gateway.VerifySignature("order_abc", "pay_xyz", good))
	require.False(t, gateway.VerifySignature("order_abc", "pay_xyz", "bad"))
}
