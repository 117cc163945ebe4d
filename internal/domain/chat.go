package domain

// ChatTurn is one message of a chat conversation as supplied by the caller.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
