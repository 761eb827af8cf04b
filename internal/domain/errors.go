package domain

import "errors"

var (
	// ErrNotFound means the referenced document vanished between read and
	// write; the operation is abandoned with no partial write.
	ErrNotFound = errors.New("document not found")

	// ErrWriteRejected wraps network or permission failures on writes; the
	// local cache is left untouched.
	ErrWriteRejected = errors.New("write rejected")

	// ErrInvalidArticle is returned when a post carries no image, video, or
	// description. The write never reaches the store.
	ErrInvalidArticle = errors.New("article must contain an image, video, or description")

	// ErrNotAuthorized means the identity is not in the organizer list, or is
	// not the creator of the entity it tried to change.
	ErrNotAuthorized = errors.New("not authorized")
)
