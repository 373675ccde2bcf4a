package sink

import (
	"context"

	"github.com/galois26/creator-feed/internal/model"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, events []model.Event) error
}
