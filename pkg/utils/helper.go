package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// GeneratePaymentRef creates the gateway-visible order identifier for a
// payment attempt. Unique per creation, never reused.
func GeneratePaymentRef() string {
	rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	// Format: PAY-YYYYMMDD-HHMMSS-RANDOM
	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%06d", rand.Intn(1000000))

	return fmt.Sprintf("PAY-%s-%s-%s", datePart, timePart, randomPart)
}
