package app

import "time"

// ThrottleAllowed reports whether a message push may fire for a pair given
// the last push timestamp (nil meaning none ever sent). Pure function; the
// caller persists the new timestamp, and only after a push attempt so a send
// that never left is not masked.
func ThrottleAllowed(lastPushAt *time.Time, now time.Time, window time.Duration) bool {
	if lastPushAt == nil {
		return true
	}
	return now.Sub(*lastPushAt) >= window
}
