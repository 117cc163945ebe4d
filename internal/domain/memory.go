package domain

import "time"

// MemoryType names a semantic memory collection.
type MemoryType string

const (
	MemoryReflection MemoryType = "reflection"
	MemoryChat       MemoryType = "chat"
	MemoryInsight    MemoryType = "insight"
)

// MemoryRecord is one stored text with an optional embedding vector.
type MemoryRecord struct {
	ID         string
	UserID     string
	Type       MemoryType
	Text       string
	Metadata   map[string]string
	Vector     []float32
	EmbedModel string
	CreatedAt  time.Time
}
