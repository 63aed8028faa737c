// Package metadata keeps track of the fields known for every serialized type and
// reconciles newly observed fields with an external authority.
//
// Serializers ask the Manager for a Handler before writing an object, report every field
// they write through it, and submit it afterwards. Fields the published Snapshot did not
// know are queued as a Diff. ProcessPendingUpdates merges the queued diffs, pushes the new
// fields through an Updater and, only if the push succeeded, publishes a new SnapshotMap
// under the next version.
//
// Basic usage:
//
//	import "github.com/aalemi-dev/portmeta/metadata"
//
//	mgr := metadata.NewManager(metadata.Config{})
//
//	typeID := metadata.TypeIDOf("Person")
//	h := mgr.GetHandler(typeID)
//	if _, err := h.OnFieldWritten("name", 9); err != nil {
//		return err
//	}
//	if err := mgr.SubmitHandler("Person", typeID, h); err != nil {
//		return err
//	}
//
//	if mgr.IsUpdatedSince(lastSeen) {
//		err := mgr.ProcessPendingUpdates(ctx, updater)
//		var ue *metadata.UpdateError
//		if errors.As(err, &ue) {
//			mgr.Requeue(ue.Diffs...)
//		}
//		lastSeen = mgr.GetVersion()
//	}
//
// Versions:
//
// GetVersion returns the last published version. It starts at 0 and increases by exactly
// one for every successful ProcessPendingUpdates or Bootstrap call, including calls that
// found nothing pending. IsUpdatedSince(v) reports whether anything was submitted after v
// was published; it may return true spuriously but never misses a submission.
//
// Errors:
//
// A field id that maps to two different fields, or a type id submitted under two names,
// is reported as a *ConflictError and is never retryable. An Updater failure is reported
// as an *UpdateError. In both cases nothing is published and the drained diffs travel
// with the error; the Manager does not re-enqueue them on its own.
//
// Thread safety:
//
// All Manager methods are safe for concurrent use. Handlers are not: each one belongs to
// a single serialization.
package metadata
