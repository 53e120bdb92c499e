package models

import "time"

// NotificationType enumerates the notification taxonomy. Only TypeReply is
// produced by the service today.
type NotificationType string

const (
	TypeReply   NotificationType = "reply"
	TypeMention NotificationType = "mention"
	TypeLike    NotificationType = "like"
	TypeSystem  NotificationType = "system"
	TypeInfo    NotificationType = "info"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
	TypeSuccess NotificationType = "success"
)

// Notification tells RecipientUserID that SenderUserID did something.
// IsRead only ever moves from false to true.
type Notification struct {
	ID               string           `json:"id" firestore:"-" bson:"_id,omitempty"`
	RecipientUserID  string           `json:"recipientUserId" firestore:"recipientUserId" bson:"recipientUserId"`
	Type             NotificationType `json:"type" firestore:"type" bson:"type"`
	SenderUserID     string           `json:"senderUserId" firestore:"senderUserId" bson:"senderUserId"`
	SenderUserName   string           `json:"senderUserName" firestore:"senderUserName" bson:"senderUserName"`
	SenderUserAvatar string           `json:"senderUserAvatar,omitempty" firestore:"senderUserAvatar,omitempty" bson:"senderUserAvatar,omitempty"`
	ContentPreview   string           `json:"contentPreview" firestore:"contentPreview" bson:"contentPreview"`
	RelatedMessageID string           `json:"relatedMessageId" firestore:"relatedMessageId" bson:"relatedMessageId"`
	IsRead           bool             `json:"isRead" firestore:"isRead" bson:"isRead"`
	CreatedAt        time.Time        `json:"createdAt" firestore:"createdAt,serverTimestamp" bson:"createdAt"`
	URL              string           `json:"url,omitempty" firestore:"url,omitempty" bson:"url,omitempty"`
}

func (n *Notification) DocID() string { return n.ID }
func (n *Notification) SetDocID(id string) { n.ID = id }
func (n *Notification) StampCreated(now time.Time) { stampIfZero(&n.CreatedAt, now) }
