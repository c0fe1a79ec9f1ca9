package chat

import "errors"

var (
	ErrEmptyMessage      = errors.New("message content is empty")
	ErrInvalidKind       = errors.New("unknown message kind")
	ErrMissingAttachment = errors.New("attachment reference is empty")
	ErrNotAMember        = errors.New("sender is not a room member")
	ErrPersistence       = errors.New("message store append failed")
)
