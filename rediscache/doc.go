// Package rediscache shares published type metadata between processes through Redis.
//
// Cache is a metadata.Updater and a metadata.Loader. Push runs one WATCH/MULTI
// transaction per type: the stored fields are read and checked for conflicts, new
// fields are written with HSETNX and a notification is published on the update
// channel. Load scans the type keys and reads every type back.
//
// Follow subscribes to the update channel and bootstraps the announced types of
// other processes into a Manager:
//
//	cache, err := rediscache.NewCache(rediscache.Config{Addr: "redis:6379", Origin: "node-1"})
//	if err != nil {
//	    return err
//	}
//	go cache.Follow(ctx, manager)
package rediscache
