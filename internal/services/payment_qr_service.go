package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"

	"github.com/jointvault/backend/internal/config"
)

// PaymentQRService issues scan-to-pay codes: an owner generates a code for a
// joint account and amount; the payer scans it, resolves the payload, and
// deposits. Codes are single-use nonces stored in redis with a TTL.
type PaymentQRService struct {
	redis  *redis.Client
	config *config.WorkflowConfig
}

func NewPaymentQRService(redisClient *redis.Client, cfg *config.WorkflowConfig) *PaymentQRService {
	return &PaymentQRService{
		redis:  redisClient,
		config: cfg,
	}
}

// GeneratePaymentCode stores the payment request payload under a nonce and
// returns the code plus a base64 QR PNG rendering of it.
func (s *PaymentQRService) GeneratePaymentCode(ctx context.Context, principalID string, accountID, amount int64) (string, string, error) {
	payload := map[string]any{
		"requestedBy": principalID,
		"accountId":   accountID,
		"amount":      amount,
		"timestamp":   time.Now().Unix(),
		"nonce":       s.generateNonce(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	code := base64.URLEncoding.EncodeToString(jsonData)

	key := fmt.Sprintf("payqr:%s", code)
	if err := s.redis.Set(ctx, key, jsonData, s.config.PaymentQRTTL).Err(); err != nil {
		return "", "", err
	}

	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	qrImage := base64.StdEncoding.EncodeToString(buf.Bytes())

	return code, qrImage, nil
}

// ProcessPaymentCode consumes a scanned code and returns its payload. Codes
// are one-shot: the redis key is deleted on first resolution.
func (s *PaymentQRService) ProcessPaymentCode(ctx context.Context, code string) (map[string]any, error) {
	key := fmt.Sprintf("payqr:%s", code)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("invalid or expired payment code")
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	s.redis.Del(ctx, key)

	return result, nil
}

func (s *PaymentQRService) generateNonce() string {
	b := make([]byte, s.config.PaymentQRLength)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
