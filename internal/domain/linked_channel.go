package domain

import "time"

// LinkStatus tracks the verification state of a channel binding.
type LinkStatus string

const (
	LinkPending  LinkStatus = "PENDING"
	LinkVerified LinkStatus = "VERIFIED"
	LinkUnlinked LinkStatus = "UNLINKED"
)

// LinkedChannel is a verified binding between an internal user account and an
// external chat-platform identity. Consulted read-only by the notification
// dispatcher to resolve a delivery target.
type LinkedChannel struct {
	ID     string
	UserID string
	// ChannelUserID is the external chat-platform user identifier.
	ChannelUserID string
	Status        LinkStatus
	// VerifyToken is the time-boxed code issued during the linking flow.
	VerifyToken     *string
	VerifyExpiresAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
