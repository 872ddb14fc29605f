//go:build linux && cgo

package auth

import (
	"fmt"
	"os/user"

	"github.com/msteinert/pam"
)

// PAMAuth authenticates operators against the host's system accounts.
type PAMAuth struct {
	serviceName string
	adminGroups []string
}

// NewPAMAuth creates new PAM authenticator
func NewPAMAuth() *PAMAuth {
	return &PAMAuth{
		serviceName: "login",
		adminGroups: []string{"wheel", "sudo", "root", "admin"},
	}
}

// Authenticate verifies username and password via PAM
func (p *PAMAuth) Authenticate(username, password string) (*User, error) {
	t, err := pam.StartFunc(p.serviceName, username, func(s pam.Style, msg string) (string, error) {
		switch s {
		case pam.PromptEchoOff:
			return password, nil
		case pam.PromptEchoOn:
			return username, nil
		case pam.ErrorMsg:
			return "", fmt.Errorf("PAM error: %s", msg)
		case pam.TextInfo:
			return "", nil
		}
		return "", fmt.Errorf("unrecognized PAM message style: %v", s)
	})
	if err != nil {
		return nil, fmt.Errorf("PAM start failed: %w", err)
	}

	if err := t.Authenticate(0); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	if err := t.AcctMgmt(0); err != nil {
		return nil, fmt.Errorf("account validation failed: %w", err)
	}

	u, err := user.Lookup(username)
	if err != nil {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	return &User{
		Username: username,
		UID:      u.Uid,
		GID:      u.Gid,
		Role:     p.determineRole(username),
	}, nil
}

// determineRole checks if user is admin based on group membership
func (p *PAMAuth) determineRole(username string) Role {
	if username == "root" {
		return RoleAdmin
	}

	u, err := user.Lookup(username)
	if err != nil {
		return RoleReadOnly
	}

	groups, err := u.GroupIds()
	if err != nil {
		return RoleReadOnly
	}

	for _, gid := range groups {
		group, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		for _, adminGroup := range p.adminGroups {
			if group.Name == adminGroup {
				return RoleAdmin
			}
		}
	}

	return RoleReadOnly
}
