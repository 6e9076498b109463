package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	c := New("key_id", "key_secret")

	good := sign("key_secret", "order_abc", "pay_xyz")
	require.True(t, c.VerifySignature("order_abc", "pay_xyz", good))

	require.False(t, c.VerifySignature("order_abc", "pay_xyz", sign("wrong_secret", "order_abc", "pay_xyz")))
	require.False(t, c.VerifySignature("order_other", "pay_xyz", good))
	require.False(t, c.VerifySignature("order_abc", "pay_xyz", ""))
}
