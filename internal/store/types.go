package store

// User is a directory entry. Users are created and mutated by the external
// identity collaborator through PutUser; they are never deleted here.
type User struct {
	ID        string
	Username  string
	Email     string
	Avatar    string
	Bio       string
	Role      string
	IsVisible bool
	Interests []string
	CreatedAt int64

	// MatchScore is filled in by directory search for one response and is
	// never persisted.
	MatchScore int
}

// Chat is a two-party conversation. Participants are kept in canonical
// (sorted) order.
type Chat struct {
	ID           string
	Participants [2]string
	CreatedAt    int64
	UpdatedAt    int64
}

// Has reports whether userID takes part in the chat.
func (c *Chat) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Message is a single chat entry. SenderName and SenderAvatar are joined from
// the directory when listing and are empty for unknown senders.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Content   string
	IsRead    bool
	CreatedAt int64

	SenderName   string
	SenderAvatar string
}

// OutboxEntry is an event waiting to be relayed to the message broker.
type OutboxEntry struct {
	ID           int64
	EventID      string
	Kind         string
	ChatID       string
	Payload      []byte
	Status       string // queued, sent, failed
	Attempts     int
	ErrorMessage string
}

// MessageEvent is the payload queued in the outbox for every new message.
type MessageEvent struct {
	EventID   string `json:"event_id"`
	Kind      string `json:"kind"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Stats holds row counts reported by the daemon status endpoint.
type Stats struct {
	Users         int64
	Chats         int64
	Messages      int64
	PendingOutbox int64
}
