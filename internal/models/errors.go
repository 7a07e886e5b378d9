package models

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrUserNotParticipant   = errors.New("user is not a participant")
	ErrEmptyMessage         = errors.New("message content or file is required")
	ErrUnsupportedFileType  = errors.New("file type not allowed")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token has expired")
	ErrEmailTaken           = errors.New("email already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrNotApplicationOwner  = errors.New("application belongs to another employer")
	ErrApplicationDecided   = errors.New("application already decided")
)
