// Package updaters composes metadata.Updater backends.
//
// Group pushes every reconciliation to several backends at once and fails when any of
// them fails, so the metadata Manager only publishes what all backends accepted.
// WithRetry repeats failed pushes with exponential backoff. Fallback chains loaders for
// startup.
//
//	group, err := updaters.NewGroup(
//	    updaters.Member{Name: "registry", Updater: updaters.WithRetry(registryClient, updaters.DefaultRetryPolicy())},
//	    updaters.Member{Name: "store", Updater: store},
//	    updaters.Member{Name: "kafka", Updater: publisher},
//	)
//	if err != nil {
//	    return err
//	}
//	err = mgr.ProcessPendingUpdates(ctx, group)
package updaters
