package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies one Telegram update on one bot. Update IDs are only
// unique per bot, so the tenant is part of the key.
func UpdateKey(tenantID string, updateID int) string {
	if tenantID == "" {
		tenantID = "admin"
	}
	return fmt.Sprintf("update:%s:%d", tenantID, updateID)
}

// OrderKey identifies one web-app order submission so a double-tapped
// checkout creates a single order.
func OrderKey(tenantID string, userID int64, payload string) string {
	return "order:" + GenerateKey(tenantID, userID, payload)
}
