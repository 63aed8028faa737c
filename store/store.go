package store

import (
	"context"
	"sort"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate creates or updates the metadata tables.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	err := s.DB().WithContext(ctx).AutoMigrate(&typeRow{}, &fieldRow{})
	err = TranslateError(err)
	s.observeOperation("migrate", "registry", "", time.Since(start), err, 0)
	return err
}

// Push stores updates in one transaction. Rows that already exist are left untouched,
// so pushing the same payload twice is not an error. A type or field that is stored
// with a different definition fails the whole push with a *metadata.ConflictError.
func (s *Store) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) (err error) {
	start := time.Now()
	defer func() {
		s.observeOperation("push", "registry", "", time.Since(start), err, int64(metadata.CountFields(updates)))
	}()

	if len(updates) == 0 {
		return nil
	}

	ids := make([]metadata.TypeID, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	err = s.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			if err := pushType(tx, updates[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		s.logWarn(ctx, "Failed to store metadata", err, map[string]interface{}{
			"types": len(updates),
		})
	}
	return err
}

func pushType(tx *gorm.DB, u metadata.TypeUpdate) error {
	typeID := int32(u.TypeID)

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&typeRow{TypeID: typeID, TypeName: u.TypeName}).Error
	if err != nil {
		return err
	}

	var stored typeRow
	if err := tx.Where("type_id = ?", typeID).Take(&stored).Error; err != nil {
		return err
	}
	if stored.TypeName != u.TypeName {
		return &metadata.ConflictError{TypeID: u.TypeID, TypeName: stored.TypeName, IncomingTypeName: u.TypeName}
	}

	if len(u.Fields) == 0 {
		return nil
	}

	rows := make([]fieldRow, 0, len(u.Fields))
	fieldIDs := make([]int32, 0, len(u.Fields))
	names := make([]string, 0, len(u.Fields))
	for _, f := range u.Fields {
		rows = append(rows, fieldRow{TypeID: typeID, FieldID: int32(f.ID), Name: f.Name, FieldType: f.Type})
		fieldIDs = append(fieldIDs, int32(f.ID))
		names = append(names, f.Name)
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return err
	}

	var existing []fieldRow
	err = tx.Where("type_id = ? AND (field_id IN ? OR name IN ?)", typeID, fieldIDs, names).
		Find(&existing).Error
	if err != nil {
		return err
	}
	return checkFields(u, existing)
}

// checkFields reports the first incoming field whose id or name is stored with a
// different definition.
func checkFields(u metadata.TypeUpdate, existing []fieldRow) error {
	byID := make(map[int32]fieldRow, len(existing))
	byName := make(map[string]fieldRow, len(existing))
	for _, r := range existing {
		byID[r.FieldID] = r
		byName[r.Name] = r
	}

	for _, f := range u.Fields {
		r, ok := byID[int32(f.ID)]
		if !ok {
			r, ok = byName[f.Name]
		}
		if !ok {
			continue
		}
		if stored := toField(r); stored != f {
			return &metadata.ConflictError{
				TypeID:   u.TypeID,
				TypeName: u.TypeName,
				Existing: stored,
				Incoming: f,
			}
		}
	}
	return nil
}

// Load returns every stored type with all of its fields, ordered by type id and
// field id.
func (s *Store) Load(ctx context.Context) (updates []metadata.TypeUpdate, err error) {
	start := time.Now()
	defer func() {
		s.observeOperation("load", "registry", "", time.Since(start), err, int64(len(updates)))
	}()

	db := s.DB().WithContext(ctx)

	var types []typeRow
	if err := db.Order("type_id").Find(&types).Error; err != nil {
		return nil, classify(err)
	}
	var fields []fieldRow
	if err := db.Order("type_id, field_id").Find(&fields).Error; err != nil {
		return nil, classify(err)
	}

	index := make(map[int32]int, len(types))
	updates = make([]metadata.TypeUpdate, 0, len(types))
	for i, t := range types {
		index[t.TypeID] = i
		updates = append(updates, metadata.TypeUpdate{
			TypeID:   metadata.TypeID(t.TypeID),
			TypeName: t.TypeName,
		})
	}
	for _, f := range fields {
		i, ok := index[f.TypeID]
		if !ok {
			continue
		}
		updates[i].Fields = append(updates[i].Fields, toField(f))
	}
	return updates, nil
}
