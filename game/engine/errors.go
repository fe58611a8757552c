package engine

import "errors"

// Business rejections. State is unchanged whenever one of these is returned.
var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBanned            = errors.New("access denied: alias is blacklisted")
	ErrUnknownBoost      = errors.New("unknown boost")
	ErrNotEligible       = errors.New("quest is not eligible for claim")
	ErrQuestNotFound     = errors.New("quest not found")
	ErrInvalidName       = errors.New("invalid name")
	ErrAlreadyInClan     = errors.New("already in a clan")
	ErrClanFull          = errors.New("clan is full")
	ErrClanNotFound      = errors.New("clan not found")
	ErrNotMember         = errors.New("not a member of this clan")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrRoleNotFound      = errors.New("role not found")
	ErrInvalidCode       = errors.New("invalid decryption key")
	ErrAlreadyUsed       = errors.New("decryption key already consumed")
	ErrNotPrivileged     = errors.New("privileged mode required")
	ErrAscensionLocked   = errors.New("ascension threshold not reached")
	ErrEmptyMessage      = errors.New("message is empty")
)

// ErrClosed is returned by every operation on a world that has been closed
var ErrClosed = errors.New("world is closed")

// IsRejection reports whether err is an expected business rejection rather
// than an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var rejections = []error{
	ErrInvalidAmount, ErrInsufficientFunds, ErrBanned, ErrUnknownBoost,
	ErrNotEligible, ErrQuestNotFound, ErrInvalidName, ErrAlreadyInClan,
	ErrClanFull, ErrClanNotFound, ErrNotMember, ErrPermissionDenied,
	ErrRoleNotFound, ErrInvalidCode, ErrAlreadyUsed, ErrNotPrivileged,
	ErrAscensionLocked, ErrEmptyMessage,
}
