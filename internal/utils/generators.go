package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReceipt returns a reference token unique per checkout attempt.
// Razorpay caps receipts at 40 characters; this stays well under that.
func GenerateReceipt(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("rcpt_%d_%s", now.UnixMilli(), suffix)
}

// GenerateRegistrationID derives a registration id from its creation time.
func GenerateRegistrationID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}
