package store

import (
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
)

// typeRow is one known type.
type typeRow struct {
	TypeID    int32     `gorm:"column:type_id;primaryKey;autoIncrement:false"`
	TypeName  string    `gorm:"column:type_name;size:255;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name used by typeRow.
func (typeRow) TableName() string {
	return "portmeta_types"
}

// fieldRow is one field of a known type. Ids and names are unique within a type.
type fieldRow struct {
	TypeID    int32     `gorm:"column:type_id;primaryKey;autoIncrement:false;uniqueIndex:idx_portmeta_fields_type_name,priority:1"`
	FieldID   int32     `gorm:"column:field_id;primaryKey;autoIncrement:false"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_portmeta_fields_type_name,priority:2"`
	FieldType int32     `gorm:"column:field_type;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name used by fieldRow.
func (fieldRow) TableName() string {
	return "portmeta_fields"
}

func toField(r fieldRow) metadata.Field {
	return metadata.Field{ID: metadata.FieldID(r.FieldID), Name: r.Name, Type: r.FieldType}
}
