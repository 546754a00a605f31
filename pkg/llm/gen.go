package llm

import (
	"context"

	"github.com/quantchat/quantchat/pkg/chat"
)

// Gen generates one assistant reply from an already-optimized context window.
// The window arrives in conversation order with any directives first.
type Gen interface {
	GenerateContent(ctx context.Context, window []chat.Message) (string, error)
}
