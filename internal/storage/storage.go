package storage

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrJobExists          = errors.New("job already exists")
	ErrJobNotFound        = errors.New("job not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrInvalidCompanyName = errors.New("invalid company name")
)

// Company names become table names, so only a strict identifier charset is
// allowed through. Everything else is rejected before it can reach DDL.
var companyNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateCompanyName checks that a company name is safe to use as a
// storage identifier. The 52-char cap leaves room for the "_selected"
// suffix under the 63-byte Postgres identifier limit.
func ValidateCompanyName(name string) error {
	if name == "" || len(name) > 52 {
		return fmt.Errorf("%w: %q", ErrInvalidCompanyName, name)
	}

	if !companyNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCompanyName, name)
	}

	return nil
}
