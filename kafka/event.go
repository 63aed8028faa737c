package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aalemi-dev/portmeta/metadata"
	"github.com/linkedin/goavro/v2"
	"github.com/segmentio/kafka-go"
)

// Header keys set on every event message
const (
	HeaderOrigin      = "portmeta-origin"
	HeaderContentType = "content-type"

	contentTypeJSON = "application/json"
	contentTypeAvro = "avro/binary"
)

// TypeEvent is the payload of one event: the fields a node published for one type.
type TypeEvent struct {
	TypeID      metadata.TypeID  `json:"type_id"`
	TypeName    string           `json:"type_name"`
	Fields      []metadata.Field `json:"fields"`
	Origin      string           `json:"origin,omitempty"`
	PublishedAt time.Time        `json:"published_at"`
}

// Update returns the event as a metadata.TypeUpdate.
func (e TypeEvent) Update() metadata.TypeUpdate {
	return metadata.TypeUpdate{
		TypeID:   e.TypeID,
		TypeName: e.TypeName,
		Fields:   e.Fields,
	}
}

// TypeEventSchema is the Avro schema of TypeEvent. published_at is in unix milliseconds.
const TypeEventSchema = `{
  "type": "record",
  "name": "TypeEvent",
  "namespace": "portmeta",
  "fields": [
    {"name": "type_id", "type": "int"},
    {"name": "type_name", "type": "string"},
    {"name": "fields", "type": {"type": "array", "items": {
      "type": "record",
      "name": "Field",
      "fields": [
        {"name": "id", "type": "int"},
        {"name": "name", "type": "string"},
        {"name": "type", "type": "int"}
      ]
    }}},
    {"name": "origin", "type": "string", "default": ""},
    {"name": "published_at", "type": "long"}
  ]
}`

var avroCodec = sync.OnceValues(func() (*goavro.Codec, error) {
	return goavro.NewCodec(TypeEventSchema)
})

// encodeEvent builds the message for e, keyed by type id so all events of one type
// land on the same partition in order.
func encodeEvent(e TypeEvent, encoding string, headers map[string]string) (kafka.Message, error) {
	var (
		body        []byte
		contentType string
		err         error
	)
	switch encoding {
	case EncodingAvro:
		body, err = marshalAvro(e)
		contentType = contentTypeAvro
	case EncodingJSON, "":
		body, err = json.Marshal(e)
		contentType = contentTypeJSON
	default:
		err = fmt.Errorf("unsupported encoding %q", encoding)
	}
	if err != nil {
		return kafka.Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	msg := kafka.Message{
		Key:   []byte(formatTypeID(e.TypeID)),
		Value: body,
		Headers: []kafka.Header{
			{Key: HeaderContentType, Value: []byte(contentType)},
		},
	}
	if e.Origin != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderOrigin, Value: []byte(e.Origin)})
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return msg, nil
}

// decodeEvent parses a message produced by encodeEvent. Messages without a
// content-type header are read as JSON.
func decodeEvent(msg kafka.Message) (TypeEvent, error) {
	var (
		e   TypeEvent
		err error
	)
	switch ct := headerMap(msg)[HeaderContentType]; ct {
	case contentTypeAvro:
		e, err = unmarshalAvro(msg.Value)
	case contentTypeJSON, "":
		err = json.Unmarshal(msg.Value, &e)
	default:
		err = fmt.Errorf("unsupported content type %q", ct)
	}
	if err != nil {
		return TypeEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if e.TypeName == "" {
		return TypeEvent{}, fmt.Errorf("%w: %v", ErrInvalidMessage, metadata.ErrEmptyTypeName)
	}
	return e, nil
}

func marshalAvro(e TypeEvent) ([]byte, error) {
	codec, err := avroCodec()
	if err != nil {
		return nil, err
	}
	fields := make([]interface{}, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, map[string]interface{}{
			"id":   int32(f.ID),
			"name": f.Name,
			"type": f.Type,
		})
	}
	return codec.BinaryFromNative(nil, map[string]interface{}{
		"type_id":      int32(e.TypeID),
		"type_name":    e.TypeName,
		"fields":       fields,
		"origin":       e.Origin,
		"published_at": e.PublishedAt.UnixMilli(),
	})
}

func unmarshalAvro(data []byte) (TypeEvent, error) {
	codec, err := avroCodec()
	if err != nil {
		return TypeEvent{}, err
	}
	native, rest, err := codec.NativeFromBinary(data)
	if err != nil {
		return TypeEvent{}, err
	}
	if len(rest) > 0 {
		return TypeEvent{}, fmt.Errorf("%d trailing bytes", len(rest))
	}

	record, ok := native.(map[string]interface{})
	if !ok {
		return TypeEvent{}, fmt.Errorf("unexpected avro value %T", native)
	}
	e := TypeEvent{
		TypeID:      metadata.TypeID(record["type_id"].(int32)),
		TypeName:    record["type_name"].(string),
		Origin:      record["origin"].(string),
		PublishedAt: time.UnixMilli(record["published_at"].(int64)).UTC(),
	}
	for _, item := range record["fields"].([]interface{}) {
		f := item.(map[string]interface{})
		e.Fields = append(e.Fields, metadata.Field{
			ID:   metadata.FieldID(f["id"].(int32)),
			Name: f["name"].(string),
			Type: f["type"].(int32),
		})
	}
	return e, nil
}

// headerMap returns the message headers as a carrier map.
func headerMap(msg kafka.Message) map[string]string {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

func formatTypeID(id metadata.TypeID) string {
	return strconv.FormatInt(int64(id), 10)
}
