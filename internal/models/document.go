package models

import "time"

// Collection names in the document store.
const (
	CollectionMessages      = "community_chats"
	CollectionReplies       = "community_replies"
	CollectionNotifications = "notifications"
	CollectionComments      = "comments"
)

// Document field names shared by every backend.
const (
	FieldCreatedAt       = "createdAt"
	FieldUpdatedAt       = "updatedAt"
	FieldParentID        = "parentId"
	FieldRecipientUserID = "recipientUserId"
	FieldIsRead          = "isRead"
	FieldReviewID        = "reviewId"
	FieldContent         = "content"
)

// Author is the identity snapshot copied onto a document at write time.
type Author struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func stampIfZero(t *time.Time, now time.Time) {
	if t.IsZero() {
		*t = now
	}
}
