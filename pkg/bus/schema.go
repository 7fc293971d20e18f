package bus

import "fmt"

// MaxRejected caps the dead-letter list.
const MaxRejected = 1000

// RejectedKey returns the Redis key of the dead-letter list for a channel.
// Pattern: {channel}:rejected
func RejectedKey(channel string) string {
	return fmt.Sprintf("%s:rejected", channel)
}
