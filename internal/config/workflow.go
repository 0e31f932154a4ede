package config

import (
	"os"
	"strconv"
	"time"
)

type WorkflowConfig struct {
	DefaultQuorum   int
	AuthorityID     string
	AuthorityPin    int64
	PaymentQRLength int
	PaymentQRTTL    time.Duration
	JournalEnabled  bool
}

func LoadWorkflowConfig() *WorkflowConfig {
	return &WorkflowConfig{
		DefaultQuorum:   getEnvAsInt("WITHDRAWAL_DEFAULT_QUORUM", 1),
		AuthorityID:     getEnv("BANK_AUTHORITY_ID", "authority"),
		AuthorityPin:    int64(getEnvAsInt("BANK_AUTHORITY_PIN", 123123)),
		PaymentQRLength: getEnvAsInt("PAYMENT_QR_NONCE_BYTES", 16),
		PaymentQRTTL:    getEnvAsDuration("PAYMENT_QR_TTL", 5*time.Minute),
		JournalEnabled:  getEnvAsBool("MOVEMENT_JOURNAL_ENABLED", true),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
