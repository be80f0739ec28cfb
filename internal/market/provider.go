// Package market fetches index and FX reads used as context for idea
// generation. Market data is advisory: callers must tolerate a zeroed
// context when the upstream source is down.
package market

import (
	"context"

	"github.com/akshayg/coach/internal/core"
)

// Provider supplies a point-in-time market context.
type Provider interface {
	// Context returns the current market read. A zeroed MarketContext with
	// a nil error means the source was reachable but returned no usable
	// data; a non-nil error means the fetch itself failed.
	Context(ctx context.Context) (core.MarketContext, error)
}
