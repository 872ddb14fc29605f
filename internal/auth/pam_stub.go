//go:build !linux || !cgo

package auth

import "fmt"

// PAMAuth authenticates operators against the host's system accounts
// (stub for non-Linux platforms).
type PAMAuth struct {
	serviceName string
	adminGroups []string
}

// NewPAMAuth creates new PAM authenticator (stub for non-Linux platforms)
func NewPAMAuth() *PAMAuth {
	return &PAMAuth{
		serviceName: "login",
		adminGroups: []string{"wheel", "sudo", "root", "admin"},
	}
}

// Authenticate returns error on non-Linux platforms
func (p *PAMAuth) Authenticate(username, password string) (*User, error) {
	return nil, fmt.Errorf("PAM authentication is not supported on this platform (Linux only)")
}
