package models

import "time"

// Comment represents a comment on a review
type Comment struct {
	ID         string    `json:"id" firestore:"-" bson:"_id,omitempty"`
	ReviewID   string    `json:"reviewId" firestore:"reviewId" bson:"reviewId"`
	UserID     string    `json:"userId" firestore:"userId" bson:"userId"`
	UserName   string    `json:"userName" firestore:"userName" bson:"userName"`
	UserAvatar string    `json:"userAvatar,omitempty" firestore:"userAvatar,omitempty" bson:"userAvatar,omitempty"`
	Content    string    `json:"content" firestore:"content" bson:"content"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

func (c *Comment) DocID() string { return c.ID }
func (c *Comment) SetDocID(id string) { c.ID = id }
func (c *Comment) StampCreated(now time.Time) { stampIfZero(&c.CreatedAt, now) }

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
