package models

import "time"

type Notification struct {
	ID         int       `json:"id"`
	SenderID   int       `json:"senderId"`
	ReceiverID int       `json:"receiverId"`
	Title      *string   `json:"title,omitempty"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`

	SenderUsername  string `json:"senderUsername,omitempty"`
	SenderFirstName string `json:"senderFirstName,omitempty"`
	SenderLastName  string `json:"senderLastName,omitempty"`
}
