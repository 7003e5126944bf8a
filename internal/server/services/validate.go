package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// normalizeEmail trims and lowercases an address for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail accepts a bare address only, without display name or angle brackets.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return common.BadRequest("Invalid email address")
	}
	return nil
}

func (s *SessionService) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < s.cfg.MinPasswordLength {
		return common.BadRequest(fmt.Sprintf("Password must be at least %d characters", s.cfg.MinPasswordLength))
	}
	return nil
}
