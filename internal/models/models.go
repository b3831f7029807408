package models

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBlocked      = errors.New("conversation is blocked")
)

// User represents a platform account as the backend reports it.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Avatar         string    `json:"avatar,omitempty"`
	IsOnline       bool      `json:"is_online"`
	LastActivity   time.Time `json:"last_activity,omitzero"`
	SocialAccounts []string  `json:"social_accounts,omitempty"`
}

// HasProvider reports whether a social provider account is linked.
func (u User) HasProvider(provider string) bool {
	for _, p := range u.SocialAccounts {
		if p == provider {
			return true
		}
	}
	return false
}

// Friend is a user enriched with per-relation state from the friend list endpoint.
type Friend struct {
	User
	UnreadCount int  `json:"unread_count"`
	IsMuted     bool `json:"is_muted"`
	IsBlocked   bool `json:"is_blocked"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest is a directed request between two users.
type FriendRequest struct {
	ID       string        `json:"id"`
	FromUser User          `json:"from_user"`
	ToUser   User          `json:"to_user"`
	Status   RequestStatus `json:"status"`
}

// Attachment is a remote file reference carried by a message.
// MediaType is inferred client-side from the file content and is
// never trusted from the server.
type Attachment struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	MediaType string `json:"-"`
}

// MessageRef is the lightweight snapshot kept for reply display.
// It references another message by ID and is never an ownership relation.
type MessageRef struct {
	ID      string `json:"id"`
	Sender  User   `json:"sender"`
	Content string `json:"content"`
}

// Message is one direct message between the current user and a peer.
type Message struct {
	ID            string       `json:"id"`
	Sender        User         `json:"sender"`
	Content       string       `json:"content"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	ReplyTo       *MessageRef  `json:"reply_to,omitempty"`
	ForwardedFrom *User        `json:"forwarded_from,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	IsRead        bool         `json:"is_read"`
}

// BlockRelation tracks both directions of a block independently.
// The backend only reports the outgoing direction ("I blocked peer");
// the reverse is learned from direct evidence and never inferred.
type BlockRelation struct {
	BlockedByMe bool
	BlockedMe   bool
}

// Either reports whether the relation is blocked in any direction.
func (b BlockRelation) Either() bool {
	return b.BlockedByMe || b.BlockedMe
}

// ProfileSettings are the account-level social settings.
type ProfileSettings struct {
	IsOnlineHidden      bool `json:"is_online_hidden"`
	AllowFriendRequests bool `json:"allow_friend_requests"`
}

// Balance is the virtual-currency account balance.
type Balance struct {
	Balance int64 `json:"balance"`
}

// Transaction is one entry of the bank transfer history.
type Transaction struct {
	ID           string    `json:"id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	Amount       int64     `json:"amount"`
	Timestamp    time.Time `json:"timestamp"`
}

// Players is the online/max player pair of the status endpoint.
type Players struct {
	Online int `json:"online"`
	Max    int `json:"max"`
}

// ServerStatus is the public game-server status.
type ServerStatus struct {
	Online  bool    `json:"online"`
	Players Players `json:"players"`
	Version string  `json:"version"`
	MOTD    string  `json:"motd"`
}
