// Package minio archives published type metadata in MinIO or any S3-compatible
// object store.
//
// Every type is stored as one JSON document under Config.Prefix, named after the
// type id:
//
//	portmeta/types/1045.json
//	{"type_id":1045,"type_name":"Person","fields":[{"id":1,"name":"age","type":2}],"updated_at":"..."}
//
// Archive implements metadata.Updater, so it can take part in reconciliation, and
// metadata.Loader, so a restarted process can seed its Manager from the bucket:
//
//	archive, err := minio.NewArchive(minio.Config{
//	    Connection: minio.ConnectionConfig{Endpoint: "minio:9000", AccessKeyID: "...", SecretAccessKey: "..."},
//	    Bucket:     "metadata",
//	})
//	if err != nil {
//	    return err
//	}
//	if err := manager.LoadFrom(ctx, archive); err != nil {
//	    return err
//	}
//
// Push merges incoming fields into the stored document and rewrites it only when it
// gains fields. A stored field with the same id or name but a different definition
// is reported as a *metadata.ConflictError wrapped with metadata.Permanent.
// Errors are translated with TranslateError; IsRetryableError reports the transient ones.
package minio
