package minio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
)

// document is the stored form of one type.
type document struct {
	TypeID    metadata.TypeID  `json:"type_id"`
	TypeName  string           `json:"type_name"`
	Fields    []metadata.Field `json:"fields"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func (d document) update() metadata.TypeUpdate {
	return metadata.TypeUpdate{TypeID: d.TypeID, TypeName: d.TypeName, Fields: d.Fields}
}

// key returns the object key of a type document.
func (a *Archive) key(typeID metadata.TypeID) string {
	return fmt.Sprintf("%s%d.json", a.cfg.Prefix, typeID)
}

// Push merges updates into the stored documents. A document is rewritten only when
// it gains fields, so pushing the same payload twice is not an error. A field or
// type name that clashes with the stored document fails with a *metadata.ConflictError
// and leaves documents of later types untouched.
func (a *Archive) Push(ctx context.Context, updates map[metadata.TypeID]metadata.TypeUpdate) (err error) {
	start := time.Now()
	defer func() {
		a.observeOperation("push", a.cfg.Bucket, "", time.Since(start), err, int64(metadata.CountFields(updates)), nil)
	}()

	if len(updates) == 0 {
		return nil
	}

	a.pushMutex.Lock()
	defer a.pushMutex.Unlock()

	ids := make([]metadata.TypeID, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err = a.pushType(ctx, updates[id]); err != nil {
			err = classify(err)
			a.logWarn(ctx, "Failed to archive metadata", err, map[string]interface{}{
				"bucket":  a.cfg.Bucket,
				"type_id": id,
			})
			return err
		}
	}
	return nil
}

func (a *Archive) pushType(ctx context.Context, u metadata.TypeUpdate) error {
	key := a.key(u.TypeID)

	stored, found, err := a.read(ctx, key)
	if err != nil {
		return err
	}

	var base metadata.FieldSet
	if found {
		if stored.TypeName != u.TypeName {
			return &metadata.ConflictError{TypeID: u.TypeID, TypeName: stored.TypeName, IncomingTypeName: u.TypeName}
		}
		if base, err = metadata.NewFieldSet(stored.Fields...); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, key, err)
		}
	}

	merged, added, err := metadata.MergeFieldSets(base, u.Fields)
	if err != nil {
		var ce *metadata.ConflictError
		if errors.As(err, &ce) {
			ce.TypeID = u.TypeID
			ce.TypeName = u.TypeName
		}
		return err
	}
	if found && len(added) == 0 {
		return nil
	}

	data, err := json.Marshal(document{
		TypeID:    u.TypeID,
		TypeName:  u.TypeName,
		Fields:    merged.Fields(),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var userMetadata map[string]string
	if a.tracer != nil {
		userMetadata = a.tracer.GetCarrier(ctx)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return a.objects.put(reqCtx, a.cfg.Bucket, key, data, userMetadata)
}

// read fetches and decodes the document stored under key. A missing object is
// reported with found == false.
func (a *Archive) read(ctx context.Context, key string) (doc document, found bool, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	data, err := a.objects.get(reqCtx, a.cfg.Bucket, key)
	if err != nil {
		if errors.Is(TranslateError(err), ErrObjectNotFound) {
			return document{}, false, nil
		}
		return document{}, false, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, false, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, key, err)
	}
	if doc.TypeName == "" {
		return document{}, false, fmt.Errorf("%w: %s: empty type name", ErrInvalidDocument, key)
	}
	return doc, true, nil
}

// Load returns every archived type ordered by type id.
func (a *Archive) Load(ctx context.Context) (updates []metadata.TypeUpdate, err error) {
	start := time.Now()
	defer func() {
		a.observeOperation("load", a.cfg.Bucket, a.cfg.Prefix, time.Since(start), err, int64(len(updates)), nil)
	}()

	listCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	keys, err := a.objects.list(listCtx, a.cfg.Bucket, a.cfg.Prefix)
	cancel()
	if err != nil {
		return nil, classify(err)
	}

	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		doc, found, err := a.read(ctx, key)
		if err != nil {
			return nil, classify(err)
		}
		if found {
			updates = append(updates, doc.update())
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].TypeID < updates[j].TypeID })
	return updates, nil
}
