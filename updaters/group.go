package updaters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/aalemi-dev/portmeta/observability"
	"github.com/aalemi-dev/portmeta/tracer"
)

// ErrDuplicateName is returned when two members of a Group share a name.
var ErrDuplicateName = errors.New("duplicate updater name")

// Member is one named backend of a Group.
type Member struct {
	Name    string
	Updater metadata.Updater
}

// Group pushes the same updates to several backends concurrently. A push succeeds only
// when every member succeeds; otherwise the member errors are joined, each prefixed
// with the member name. Members are never cancelled because a sibling failed, so the
// joined error keeps the real cause of every failure.
type Group struct {
	members  []Member
	observer observability.Observer
	tracer   tracer.Tracer
}

// NewGroup creates a Group. Members with a nil Updater are skipped.
func NewGroup(members ...Member) (*Group, error) {
	g := &Group{}
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Updater == nil {
			continue
		}
		if _, ok := seen[m.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, m.Name)
		}
		seen[m.Name] = struct{}{}
		g.members = append(g.members, m)
	}
	return g, nil
}

// WithObserver sets the observer notified after every member push.
func (g *Group) WithObserver(observer observability.Observer) *Group {
	g.observer = observer
	return g
}

// WithTracer sets the tracer used for one child span per member push.
func (g *Group) WithTracer(t tracer.Tracer) *Group {
	g.tracer = t
	return g
}

// Names returns the member names in push order.
func (g *Group) Names() []string {
	names := make([]string, 0, len(g.members))
	for _, m := range g.members {
		names = append(names, m.Name)
	}
	return names
}

// Len returns the number of members.
func (g *Group) Len() int {
	return len(g.members)
}

// Push implements metadata.Updater.
func (g *Group) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) error {
	switch len(g.members) {
	case 0:
		return nil
	case 1:
		return g.pushMember(ctx, g.members[0], updates)
	}

	errs := make([]error, len(g.members))
	var wg sync.WaitGroup
	wg.Add(len(g.members))
	for i, m := range g.members {
		go func(i int, m Member) {
			defer wg.Done()
			errs[i] = g.pushMember(ctx, m, updates)
		}(i, m)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (g *Group) pushMember(ctx context.Context, m Member, updates map[metadata.TypeID]metadata.TypeUpdate) error {
	start := time.Now()

	var span tracer.Span
	if g.tracer != nil {
		ctx, span = g.tracer.StartSpan(ctx, "updaters.push")
		span.SetAttributes(map[string]interface{}{"updater": m.Name})
		defer span.End()
	}

	err := m.Updater.Push(ctx, updates)
	if err != nil {
		err = &MemberError{Name: m.Name, Err: err}
		if span != nil {
			span.RecordError(err)
		}
	}
	g.observeOperation(m.Name, time.Since(start), err, int64(metadata.CountFields(updates)))
	return err
}

// MemberError is the failure of one Group member.
type MemberError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *MemberError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Unwrap returns the member's error.
func (e *MemberError) Unwrap() error {
	return e.Err
}

// FailedMembers returns the names of the members whose push failed in err.
func FailedMembers(err error) []string {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var names []string
	for _, e := range errs {
		var me *MemberError
		if errors.As(e, &me) {
			names = append(names, me.Name)
		}
	}
	return names
}
