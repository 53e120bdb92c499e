package models

import "time"

// Reply answers a Message, or another Reply under the same Message.
// ParentID always names the root Message.
type Reply struct {
	ID                string    `json:"id" firestore:"-" bson:"_id,omitempty"`
	Body              string    `json:"body" firestore:"body" bson:"body"`
	AuthorID          string    `json:"authorId" firestore:"authorId" bson:"authorId"`
	AuthorName        string    `json:"authorName" firestore:"authorName" bson:"authorName"`
	AuthorAvatar      string    `json:"authorAvatar,omitempty" firestore:"authorAvatar,omitempty" bson:"authorAvatar,omitempty"`
	CreatedAt         time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp" bson:"createdAt"`
	ParentID          string    `json:"parentId" firestore:"parentId" bson:"parentId"`
	ReplyToID         string    `json:"replyToId,omitempty" firestore:"replyToId,omitempty" bson:"replyToId,omitempty"`
	ReplyToAuthorName string    `json:"replyToAuthorName,omitempty" firestore:"replyToAuthorName,omitempty" bson:"replyToAuthorName,omitempty"`
	ReplyToPreview    string    `json:"replyToPreview,omitempty" firestore:"replyToPreview,omitempty" bson:"replyToPreview,omitempty"`
}

func (r *Reply) DocID() string { return r.ID }
func (r *Reply) SetDocID(id string) { r.ID = id }
func (r *Reply) StampCreated(now time.Time) { stampIfZero(&r.CreatedAt, now) }

// CreateReplyRequest defines the request body for replying to a message or reply
type CreateReplyRequest struct {
	ReplyToID string `json:"replyToId,omitempty"`
	Body      string `json:"body" validate:"required,max=400"`
}
