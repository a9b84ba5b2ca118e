package accounts

import "errors"

var (
	// ErrDuplicateEmail indicates an account already uses the email address.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrNoSuchAccount indicates no account exists for the email address.
	ErrNoSuchAccount = errors.New("no account found with that email")
	// ErrNotVerified indicates the account has not completed email verification.
	ErrNotVerified = errors.New("email not verified")
	// ErrBadCredential indicates the password does not match.
	ErrBadCredential = errors.New("incorrect password")
	// ErrInvalidToken indicates a verification token is unknown, used or expired.
	ErrInvalidToken = errors.New("invalid or expired verification token")
	// ErrAlreadyVerified indicates there is no pending verification to resend.
	ErrAlreadyVerified = errors.New("account already verified")
)
