package service

import "errors"

// Validation errors. Nothing has been written when these are returned.
var (
	ErrMissingRecipient    = errors.New("recipient is required")
	ErrInvalidParticipants = errors.New("a conversation needs two different users")
	ErrEmptyMessage        = errors.New("message text or file is required")
	ErrMissingSince        = errors.New("since timestamp is required")
	ErrNoSelfContact       = errors.New("cannot add yourself as a contact")
	// ErrUploadsDisabled is returned when a file is sent but no storage is wired.
	ErrUploadsDisabled = errors.New("file uploads are not configured")
)

// Permission errors.
var (
	ErrNotParticipant        = errors.New("you are not a participant of this conversation")
	ErrDeleteForAllNotSender = errors.New("only the sender can delete a message for everyone")
)

// Not found errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrFileNotFound         = errors.New("file not found")
)

// Conflicts.
var (
	ErrDuplicateContact = errors.New("already in contacts")
	ErrEmailTaken       = errors.New("email already taken")
)

// Authentication errors.
var ErrInvalidCreds = errors.New("invalid email or password")
