package utility

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

func NewUUID() string {
	return uuid.New().String()
}

func Contains(array []string, s string) bool {
	for _, v := range array {
		if v == s {
			return true
		}
	}
	return false
}

// RandomDuration returns a duration between min and max seconds, used for
// simulated device delays.
func RandomDuration(minSeconds, maxSeconds int) time.Duration {
	if maxSeconds <= minSeconds {
		return time.Duration(minSeconds) * time.Second
	}
	seconds := minSeconds + rand.Intn(maxSeconds-minSeconds+1)
	return time.Duration(seconds) * time.Second
}
