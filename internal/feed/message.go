package feed

import (
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
)

const TypeCommunity = "community"

// Message is the only frame the feed sends: a full committed snapshot.
type Message struct {
	Type      string            `json:"type"`
	Community *domain.Community `json:"community"`
}
