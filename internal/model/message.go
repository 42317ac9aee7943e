package model

import "time"

// MaxMessageLength bounds message content in characters.
const MaxMessageLength = 2000

// Message is one entry of a per-demand thread.  From and To are always the
// two participants of DemandID.  Only Read is ever mutated.
type Message struct {
	ID             string    `json:"id"`
	DemandID       string    `json:"demandId"`
	FromIdentityID string    `json:"from"`
	ToIdentityID   string    `json:"to"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	Seed           bool      `json:"seed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationSummary is one row of the conversation list: the latest
// message of a demand thread and how many messages the caller has not read.
type ConversationSummary struct {
	DemandID      string    `json:"demandId"`
	Counterpart   string    `json:"counterpart"`
	LastMessage   Message   `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}
