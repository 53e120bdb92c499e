package models

import "time"

// Message is a top-level community board post.
type Message struct {
	ID           string    `json:"id" firestore:"-" bson:"_id,omitempty"`
	Body         string    `json:"body" firestore:"body" bson:"body"`
	AuthorID     string    `json:"authorId" firestore:"authorId" bson:"authorId"`
	AuthorName   string    `json:"authorName" firestore:"authorName" bson:"authorName"`
	AuthorAvatar string    `json:"authorAvatar,omitempty" firestore:"authorAvatar,omitempty" bson:"authorAvatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp" bson:"createdAt"`
}

func (m *Message) DocID() string { return m.ID }
func (m *Message) SetDocID(id string) { m.ID = id }
func (m *Message) StampCreated(now time.Time) { stampIfZero(&m.CreatedAt, now) }

// CreateMessageRequest defines the request body for posting to the board
type CreateMessageRequest struct {
	Body string `json:"body" validate:"required,max=1000"`
}
