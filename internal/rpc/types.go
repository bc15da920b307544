package rpc

import "github.com/matheus3301/collab/internal/store"

type User struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Email      string   `json:"email,omitempty"`
	Avatar     string   `json:"avatar,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Role       string   `json:"role,omitempty"`
	IsVisible  bool     `json:"is_visible"`
	Interests  []string `json:"interests,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	MatchScore int      `json:"match_score,omitempty"`
}

type Chat struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// Other returns the participant that is not userID, or "" when there is none.
func (c Chat) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

type Message struct {
	ID           string `json:"id"`
	ChatID       string `json:"chat_id"`
	SenderID     string `json:"sender_id"`
	SenderName   string `json:"sender_name,omitempty"`
	SenderAvatar string `json:"sender_avatar,omitempty"`
	Content      string `json:"content"`
	IsRead       bool   `json:"is_read"`
	CreatedAt    int64  `json:"created_at"`
}

type SearchRequest struct {
	Query    string `json:"query"`
	CallerID string `json:"caller_id"`
}

type SearchResponse struct {
	Users []User `json:"users"`
}

type PutUserRequest struct {
	User User `json:"user"`
}

type PutUserResponse struct {
	User User `json:"user"`
}

type SeedDemoUsersRequest struct{}

type SeedDemoUsersResponse struct {
	Created int `json:"created"`
}

type GetOrCreateChatRequest struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

type GetOrCreateChatResponse struct {
	ChatID string `json:"chat_id"`
}

type GetChatRequest struct {
	ChatID string `json:"chat_id"`
}

type GetChatResponse struct {
	Chat Chat `json:"chat"`
}

type ListChatsRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type SendMessageRequest struct {
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
}

// SendMessageResponse reports validation and not-found failures in-band;
// only backend failures surface as gRPC errors.
type SendMessageResponse struct {
	Success bool     `json:"success"`
	Message *Message `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type ListMessagesRequest struct {
	ChatID string `json:"chat_id"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type MarkReadRequest struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

type WatchMessagesRequest struct {
	ChatID string `json:"chat_id"`
}

// MessageSnapshot is the full ordered history of a chat at one point in
// time. Seq counts snapshots within one stream, starting at 1.
type MessageSnapshot struct {
	ChatID   string    `json:"chat_id"`
	Seq      int64     `json:"seq"`
	Messages []Message `json:"messages"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Profile       string `json:"profile"`
	State         string `json:"state"`
	Reason        string `json:"reason,omitempty"`
	UptimeMs      int64  `json:"uptime_ms"`
	Driver        string `json:"driver"`
	Users         int64  `json:"users"`
	Chats         int64  `json:"chats"`
	Messages      int64  `json:"messages"`
	PendingOutbox int64  `json:"pending_outbox"`
	Relay         bool   `json:"relay"`
	Bridge        bool   `json:"bridge"`
}

func FromUser(u store.User) User {
	return User{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		Role:       u.Role,
		IsVisible:  u.IsVisible,
		Interests:  u.Interests,
		CreatedAt:  u.CreatedAt,
		MatchScore: u.MatchScore,
	}
}

// ToStore converts to a directory entry. MatchScore is dropped.
func (u User) ToStore() store.User {
	return store.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Role:      u.Role,
		IsVisible: u.IsVisible,
		Interests: u.Interests,
		CreatedAt: u.CreatedAt,
	}
}

func FromChat(c store.Chat) Chat {
	return Chat{
		ID:           c.ID,
		Participants: []string{c.Participants[0], c.Participants[1]},
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func FromMessage(m store.Message) Message {
	return Message{
		ID:           m.ID,
		ChatID:       m.ChatID,
		SenderID:     m.SenderID,
		SenderName:   m.SenderName,
		SenderAvatar: m.SenderAvatar,
		Content:      m.Content,
		IsRead:       m.IsRead,
		CreatedAt:    m.CreatedAt,
	}
}

func FromUsers(users []store.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = FromUser(u)
	}
	return out
}

func FromChats(chats []store.Chat) []Chat {
	out := make([]Chat, len(chats))
	for i, c := range chats {
		out[i] = FromChat(c)
	}
	return out
}

func FromMessages(msgs []store.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = FromMessage(m)
	}
	return out
}
