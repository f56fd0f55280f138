// Package queue defines message payloads exchanged over the message broker.
package queue

// Purposes a one-time code can be issued for.
const (
	PurposeLoginOTP      = "login_otp"
	PurposePasswordReset = "password_reset"
)

// CodeDispatchEvent is published every time the auth flow issues a one-time
// code. A delivery worker consumes these and forwards the code to the user
// over the configured out-of-band channel; the auth core itself never waits
// on delivery.
type CodeDispatchEvent struct {
	Purpose  string `json:"purpose"`  // login_otp | password_reset
	Identity string `json:"identity"` // normalized phone or email the code goes to
	Code     string `json:"code"`     // the 6-digit code
	IssuedAt string `json:"issued_at"`
}
