package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"

	"github.com/jointvault/backend/internal/config"
)

func newQRService(t *testing.T) (*PaymentQRService, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	cfg := &config.WorkflowConfig{
		PaymentQRLength: 16,
		PaymentQRTTL:    5 * time.Minute,
	}
	return NewPaymentQRService(client, cfg), mock
}

func TestPaymentQRService_GeneratePaymentCode(t *testing.T) {
	svc, mock := newQRService(t)

	mock.Regexp().ExpectSet(`payqr:.+`, `.+`, 5*time.Minute).SetVal("OK")

	code, qrImage, err := svc.GeneratePaymentCode(context.Background(), "pr_owner", 3, 250_000)
	assert.NoError(t, err)
	assert.NotEmpty(t, qrImage)

	// The code itself carries the payload; redis only tracks liveness.
	raw, err := base64.URLEncoding.DecodeString(code)
	assert.NoError(t, err)

	var payload map[string]any
	assert.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "pr_owner", payload["requestedBy"])
	assert.Equal(t, float64(3), payload["accountId"])
	assert.Equal(t, float64(250_000), payload["amount"])
	assert.NotEmpty(t, payload["nonce"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentQRService_ProcessPaymentCode(t *testing.T) {
	svc, mock := newQRService(t)

	payload := map[string]any{
		"requestedBy": "pr_owner",
		"accountId":   float64(3),
		"amount":      float64(250_000),
	}
	jsonData, err := json.Marshal(payload)
	assert.NoError(t, err)
	code := base64.URLEncoding.EncodeToString(jsonData)

	t.Run("valid code resolves and is consumed", func(t *testing.T) {
		mock.ExpectGet("payqr:" + code).SetVal(string(jsonData))
		mock.ExpectDel("payqr:" + code).SetVal(1)

		result, err := svc.ProcessPaymentCode(context.Background(), code)
		assert.NoError(t, err)
		assert.Equal(t, "pr_owner", result["requestedBy"])
		assert.Equal(t, float64(250_000), result["amount"])

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		mock.ExpectGet("payqr:stale").RedisNil()

		_, err := svc.ProcessPaymentCode(context.Background(), "stale")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid or expired")
	})
}
