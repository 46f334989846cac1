package ratelimit

import "fmt"

// KeyForUser builds the limiter key scoping a limit to one user.
func KeyForUser(userID uint64) string {
	if userID == 0 {
		return ""
	}
	return fmt.Sprintf("u:%d", userID)
}
