package validation

import (
	"net/mail"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func ValidateUsername(username string) bool {
	username = NormalizeUsername(username)
	return usernameRe.MatchString(username)
}

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

// MaxClientIDLength bounds the client-supplied correlation id; ids longer
// than the column are rejected rather than truncated.
const MaxClientIDLength = 64

var clientIDRe = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

func ValidateClientID(id string) bool {
	if id == "" || len(id) > MaxClientIDLength {
		return false
	}
	return clientIDRe.MatchString(id)
}

// TrimAndLimit trims surrounding whitespace and caps the string at max bytes.
// The cut backs off to a rune boundary so multi-byte text never ends in a
// partial encoding.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 && len(s) > max {
		for max > 0 && !utf8.RuneStart(s[max]) {
			max--
		}
		return s[:max]
	}
	return s
}
