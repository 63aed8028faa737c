package metadata

import (
	"context"
)

// Updater propagates merged metadata to the outside world: peers, a central authority
// or a persistent store.
//
// Push must report failure with a non-nil error and must accept the same payload more
// than once: fields the authority already knows are not an error.
type Updater interface {
	Push(ctx context.Context, updates map[TypeID]TypeUpdate) error
}

// UpdaterFunc adapts a plain function to the Updater interface.
type UpdaterFunc func(ctx context.Context, updates map[TypeID]TypeUpdate) error

// Push calls f(ctx, updates).
func (f UpdaterFunc) Push(ctx context.Context, updates map[TypeID]TypeUpdate) error {
	return f(ctx, updates)
}

// Loader returns previously known metadata, typically at startup before any encode
// traffic begins.
type Loader interface {
	Load(ctx context.Context) ([]TypeUpdate, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ctx context.Context) ([]TypeUpdate, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) ([]TypeUpdate, error) {
	return f(ctx)
}

// CountFields returns the total number of fields in a push payload.
func CountFields(updates map[TypeID]TypeUpdate) int {
	n := 0
	for _, u := range updates {
		n += len(u.Fields)
	}
	return n
}
