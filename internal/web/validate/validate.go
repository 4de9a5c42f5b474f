// Package validate holds the client-side field rules the forms enforce
// before anything is sent to the account API.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// PasswordMinLen and PasswordMaxLen bound every password field.
	PasswordMinLen = 8
	PasswordMaxLen = 40

	fullNameMinLen = 3
	fullNameMaxLen = 100
)

var (
	reEmail   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reOTPCode = regexp.MustCompile(`^\d{6}$`)
)

// Errors maps field names to their error messages. A nil or empty Errors
// means the input passed.
type Errors map[string][]string

func (e Errors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge folds other into e, appending messages per field.
func (e Errors) Merge(other map[string][]string) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Email checks the address shape. The API owns any stricter policy.
func Email(field, value string, errs Errors) {
	if !reEmail.MatchString(strings.TrimSpace(value)) {
		errs.add(field, "Must be a valid email")
	}
}

// PasswordLength enforces the [8,40] length bound used by login and
// change-password forms.
func PasswordLength(field, value string, errs Errors) {
	switch {
	case len(value) < PasswordMinLen:
		errs.add(field, fmt.Sprintf("Password must be at least %d characters", PasswordMinLen))
	case len(value) > PasswordMaxLen:
		errs.add(field, fmt.Sprintf("Password must be less than %d characters", PasswordMaxLen))
	}
}

// PasswordComplexity enforces the signup policy: length bounds plus at least
// one lowercase, one uppercase, one digit and one symbol.
func PasswordComplexity(field, value string, errs Errors) {
	before := len(errs[field])
	PasswordLength(field, value, errs)
	if len(errs[field]) > before {
		return
	}

	var lower, upper, digit, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	switch {
	case !lower:
		errs.add(field, "Password must contain a lowercase letter")
	case !upper:
		errs.add(field, "Password must contain an uppercase letter")
	case !digit:
		errs.add(field, "Password must contain a digit")
	case !symbol:
		errs.add(field, "Password must contain a symbol")
	}
}

// PasswordsMatch requires confirm to be byte-equal to password. The error is
// attached to the confirmation field.
func PasswordsMatch(confirmField, password, confirm string, errs Errors) {
	if password != confirm {
		errs.add(confirmField, "Passwords do not match")
	}
}

// FullName enforces the 3-100 character bound.
func FullName(field, value string, errs Errors) {
	trimmed := strings.TrimSpace(value)
	switch {
	case len(trimmed) < fullNameMinLen:
		errs.add(field, fmt.Sprintf("Full name must be at least %d characters", fullNameMinLen))
	case len(trimmed) > fullNameMaxLen:
		errs.add(field, fmt.Sprintf("Full name must be less than %d characters", fullNameMaxLen))
	}
}

// OTPCode requires exactly six digits, the shape of a login TOTP code.
func OTPCode(field, value string, errs Errors) {
	if !reOTPCode.MatchString(value) {
		errs.add(field, "OTP must be exactly 6 digits")
	}
}

// MFAEnableCode requires at least six characters. Enrollment accepts both
// TOTP codes and longer recovery-style codes, so only a lower bound applies.
func MFAEnableCode(field, value string, errs Errors) {
	if len(value) < 6 {
		errs.add(field, "TOTP code must be at least 6 characters long")
	}
}
