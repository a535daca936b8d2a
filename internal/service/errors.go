package service

import "errors"

// Sentinel errors returned by the domain services. Handlers translate them
// to HTTP statuses with errors.Is.
var (
	// ErrRecipientRequired rejects opening a thread without naming the
	// other party.
	ErrRecipientRequired = errors.New("userId is required")
	// ErrSelfConversation rejects opening a thread with oneself.
	ErrSelfConversation = errors.New("cannot open a conversation with yourself")
	// ErrNotConversationMember rejects reads/writes by non-members.
	ErrNotConversationMember = errors.New("not a member of this conversation")
	// ErrEmptyMessage rejects a message carrying neither text nor an image.
	ErrEmptyMessage = errors.New("message requires text or an image")
	// ErrNotPostOwner rejects delete/fulfill attempts by non-owners.
	ErrNotPostOwner = errors.New("not authorized to modify this post")
	// ErrPostAlreadyFulfilled rejects a second fulfillment of the same post.
	ErrPostAlreadyFulfilled = errors.New("post is already fulfilled")
	// ErrEmailTaken rejects registration with an email already in use.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials rejects a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
