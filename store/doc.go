// Package store persists published metadata in PostgreSQL or MySQL/MariaDB via gorm.
//
// Store implements metadata.Updater and metadata.Loader. Each push runs in a single
// transaction and inserts type and field rows with ON CONFLICT DO NOTHING, then reads
// the rows back to detect definitions that disagree with what is already stored:
//
//	s, err := store.NewStore(store.Config{
//	    Driver: store.DriverPostgres,
//	    Connection: store.Connection{
//	        Host: "localhost", Port: "5432", User: "portmeta", DbName: "portmeta",
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.Migrate(ctx); err != nil {
//	    return err
//	}
//	if err := manager.LoadFrom(ctx, s); err != nil {
//	    return err
//	}
//
// Tables:
//
//	portmeta_types  (type_id PK, type_name, created_at)
//	portmeta_fields (type_id, field_id PK; unique type_id, name; field_type, created_at)
//
// Error handling:
//
// Driver errors are translated with TranslateError. Connection loss, deadlocks and
// timeouts are retryable; everything else returned by Push is wrapped with
// metadata.Permanent.
package store
