// shared/redis/constants.go
package redis

import "fmt"

const (
	// Key constants for registration-service coordination data
	TeamCodeKeyPrefix = "team_code:{%s}:" // Reserved team code: team_code:{CODE}
	SessionKeyPrefix  = "session:{%s}:"   // First-seen marker for a signed-in identity: session:{email}
)

// TeamCodeKey returns the reservation key for code.
func TeamCodeKey(code string) string {
	return fmt.Sprintf(TeamCodeKeyPrefix, code)
}

// SessionKey returns the first-seen marker key for email.
func SessionKey(email string) string {
	return fmt.Sprintf(SessionKeyPrefix, email)
}
