package utils

import (
	"math/rand"
	"strconv"
)

// CodeFunc produces a fresh numeric one-time code.  The auth handler holds a
// CodeFunc rather than calling a package-global generator so tests can pin
// the values that get issued.
type CodeFunc func() string

// RandomCode draws a uniform 6-digit code in [100000, 999999].  The codes
// gate short-lived, rate-limited verification attempts, so the runtime's
// seeded generator is sufficient here.
func RandomCode() string {
	return strconv.Itoa(100000 + rand.Intn(900000))
}
