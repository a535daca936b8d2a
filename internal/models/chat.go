package models

import "time"

// Conversation is the single messaging thread between two users. The member
// pair is stored in canonical order (MemberOneID < MemberTwoID) under a
// composite unique index, so concurrent first contacts resolve to one row.
type Conversation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MemberOneID     uint      `gorm:"uniqueIndex:idx_conversation_pair;not null" json:"member_one_id"`
	MemberTwoID     uint      `gorm:"uniqueIndex:idx_conversation_pair;not null" json:"member_two_id"`
	MemberOne       User      `gorm:"foreignKey:MemberOneID" json:"member_one"`
	MemberTwo       User      `gorm:"foreignKey:MemberTwoID" json:"member_two"`
	LatestMessageID *uint     `json:"latest_message_id,omitempty"`
	LatestMessage   *Message  `gorm:"foreignKey:LatestMessageID" json:"latest_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasMember reports whether the user belongs to the conversation.
func (c Conversation) HasMember(userID uint) bool {
	return c.MemberOneID == userID || c.MemberTwoID == userID
}

// Message is an immutable chat entry. At least one of Text or ImageURL is
// present; this is enforced at the service layer before creation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint      `gorm:"index;not null" json:"sender_id"`
	Sender         User      `gorm:"foreignKey:SenderID" json:"sender"`
	Text           string    `gorm:"type:text" json:"text"`
	ImageURL       string    `gorm:"size:512" json:"image_url"`
	CreatedAt      time.Time `json:"created_at"`
}
