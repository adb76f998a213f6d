package repositorycache

import (
	"context"
)

type skipConsistencyKey struct{}

// WithSkipConsistencyCheck marks ctx so CachedRepository.List reads the live
// cache contents instead of going through the cold-start gate.
func WithSkipConsistencyCheck(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, skipConsistencyKey{}, true)
}

func skipConsistencyFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(skipConsistencyKey{}).(bool)
	return skip
}
