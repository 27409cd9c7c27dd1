package service

import (
	"errors"

	"github.com/iliyamo/account-service/internal/utils"
)

// Failures the account service and resolver report.  Handlers translate
// them to responses; any other error is an internal failure.
var (
	ErrDuplicateEmail     = errors.New("a user with this email already exists")
	ErrDuplicateUsername  = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrInactiveAccount    = errors.New("inactive user")
	ErrForbidden          = errors.New("the user doesn't have enough privileges")
	ErrNotFound           = errors.New("user not found")
	ErrBlankUsername      = errors.New("username must not be blank")
)

// PolicyViolationError is the password strength failure.
type PolicyViolationError = utils.PolicyViolationError

// IsPolicyViolation reports whether err is a password policy failure.
func IsPolicyViolation(err error) bool {
	var pv *PolicyViolationError
	return errors.As(err, &pv)
}
