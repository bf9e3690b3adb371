package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// RecoveryCodeLength is the number of hex characters kept from a random UUID.
const RecoveryCodeLength = 16

func newRecoveryCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", "")[:RecoveryCodeLength], nil
}

// humanizeWindow renders a validity window such as "1 hour" or "30 minutes".
func humanizeWindow(d time.Duration) string {
	var epoch time.Time
	return strings.TrimSpace(humanize.RelTime(epoch, epoch.Add(d), "", ""))
}
