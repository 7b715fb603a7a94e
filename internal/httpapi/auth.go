package httpapi

import (
	"crypto/subtle"
	"strings"
)

const bearerPrefix = "Bearer "

// constantTimeBearerEquals reports whether an Authorization header value
// carries a bearer token matching want, without leaking timing
// information about where a mismatch occurs.
func constantTimeBearerEquals(header, want string) bool {
	if !strings.HasPrefix(header, bearerPrefix) {
		return false
	}
	got := strings.TrimPrefix(header, bearerPrefix)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
