package ports

import (
	"context"

	"github.com/aopmap/kemapper/internal/core/domain"
)

// Suggester produces a ranked suggestion list for one key event.
type Suggester interface {
	Suggest(ctx context.Context, ke domain.KeyEvent, method domain.MethodFilter) *domain.SuggestionResult
}
