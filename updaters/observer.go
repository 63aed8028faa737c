package updaters

import (
	"time"

	"github.com/aalemi-dev/portmeta/observability"
)

func (g *Group) observeOperation(member string, duration time.Duration, err error, size int64) {
	if g.observer == nil {
		return
	}
	g.observer.ObserveOperation(observability.OperationContext{
		Component: "updaters",
		Operation: "push",
		Resource:  member,
		Duration:  duration,
		Error:     err,
		Size:      size,
	})
}
