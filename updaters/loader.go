package updaters

import (
	"context"
	"errors"

	"github.com/aalemi-dev/portmeta/metadata"
)

// ErrNoLoader is returned by a Fallback with no loaders.
var ErrNoLoader = errors.New("no metadata loader configured")

// Fallback returns a loader that tries loaders in order and returns the first successful
// result. When all fail the errors are joined.
func Fallback(loaders ...metadata.Loader) metadata.Loader {
	return metadata.LoaderFunc(func(ctx context.Context) ([]metadata.TypeUpdate, error) {
		var errs []error
		for _, l := range loaders {
			if l == nil {
				continue
			}
			updates, err := l.Load(ctx)
			if err == nil {
				return updates, nil
			}
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
		if len(errs) == 0 {
			return nil, ErrNoLoader
		}
		return nil, errors.Join(errs...)
	})
}
