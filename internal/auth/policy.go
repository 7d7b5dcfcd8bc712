package auth

import (
	"errors"

	"github.com/agentchat/pkg/models"
)

// Mode selects how strictly requests are authorized
type Mode string

const (
	// ModeOpen allows every request; anonymous callers act as the first
	// admin account. Intended for development deployments.
	ModeOpen Mode = "open"
	// ModeAuthenticated requires a valid token for every request; admin
	// operations additionally require the admin flag.
	ModeAuthenticated Mode = "authenticated"
	// ModeAdmin requires an admin account for every request.
	ModeAdmin Mode = "admin"
)

// Authorization errors
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
)

// Policy is the named authorization policy applied to API requests
type Policy struct {
	Mode Mode
}

// NewPolicy parses a mode string, defaulting to open
func NewPolicy(mode string) Policy {
	switch Mode(mode) {
	case ModeAuthenticated, ModeAdmin:
		return Policy{Mode: Mode(mode)}
	default:
		return Policy{Mode: ModeOpen}
	}
}

// Check authorizes a user for an operation. adminOnly marks the privileged
// operations (agent mutation, auto-chat).
func (p Policy) Check(u *models.User, adminOnly bool) error {
	if p.Mode == ModeOpen {
		return nil
	}
	if u == nil {
		return ErrUnauthenticated
	}
	if p.Mode == ModeAdmin && !u.IsAdmin {
		return ErrForbidden
	}
	if adminOnly && !u.IsAdmin {
		return ErrForbidden
	}
	return nil
}
