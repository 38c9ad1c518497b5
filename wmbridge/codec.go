// Package wmbridge feeds watermill messages into a handling.Router.
//
// A Codec maps watermill messages to handling messages: the payload type is
// named in metadata and decoded from JSON into the Go type registered under
// that name.
//
//	codec := wmbridge.NewCodec()
//	wmbridge.Register[PlaceOrder](codec, "orders.place")
//
//	router.AddNoPublisherHandler("orders", "orders", sub, wmbridge.NoPublishHandler(r, codec))
package wmbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/bjaus/handling"
	"github.com/bjaus/handling/internal/ids"
	"github.com/bjaus/handling/internal/jsoncodec"
)

// Metadata keys carrying handling attributes on watermill messages.
const (
	MetadataPayloadType = "handling_payload_type"
	MetadataCategory    = "handling_category"
	MetadataTimestamp   = "handling_timestamp"
)

var (
	// ErrUnknownPayloadType is returned when a message names a payload type
	// that was never registered.
	ErrUnknownPayloadType = errors.New("wmbridge: unknown payload type")

	// ErrInvalidPayload is returned when an unnamed payload is not JSON.
	ErrInvalidPayload = errors.New("wmbridge: payload is not valid JSON")

	// ErrUnregisteredType is returned when encoding a payload whose Go type
	// has no registered name.
	ErrUnregisteredType = errors.New("wmbridge: payload type not registered")
)

// Codec converts between watermill and handling messages.
//
// Codec is safe for concurrent use.
type Codec struct {
	mu       sync.RWMutex
	byName   map[string]reflect.Type
	byType   map[reflect.Type]string
	category handling.Category
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithDefaultCategory sets the category of messages that carry none.
// The default is handling.CategoryEvent.
func WithDefaultCategory(c handling.Category) CodecOption {
	return func(codec *Codec) {
		codec.category = c
	}
}

// NewCodec creates an empty Codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		byName:   make(map[string]reflect.Type),
		byType:   make(map[reflect.Type]string),
		category: handling.CategoryEvent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register associates name with T. Registering a name twice replaces the
// earlier type.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
func Register[T any](c *Codec, name string) {
	t := reflect.TypeFor[T]()
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byName[name]; ok {
		delete(c.byType, old)
	}
	c.byName[name] = t
	c.byType[t] = name
}

// Decode converts msg into a handling message. Payloads without a type name
// are passed on as json.RawMessage. A message without a UUID gets a fresh
// ULID. Timestamps must fall within the range a ULID can encode.
func (c *Codec) Decode(msg *message.Message) (handling.Message, error) {
	md := handling.Metadata(msg.Metadata)

	category := handling.Category(md.Get(MetadataCategory))
	if category == handling.CategoryAny {
		category = c.category
	}

	id := msg.UUID
	if id == "" {
		id = ids.New()
	}
	opts := []handling.MessageOption{handling.WithID(id)}
	if ts, ok := md.Lookup(MetadataTimestamp); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err == nil {
			err = ids.CheckTime(parsed)
		}
		if err != nil {
			return nil, fmt.Errorf("wmbridge: message %s: invalid timestamp: %w", id, err)
		}
		opts = append(opts, handling.WithTimestamp(parsed))
	}

	payload, err := c.decodePayload(md.Get(MetadataPayloadType), msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("wmbridge: message %s: %w", id, err)
	}
	return handling.NewMessage(category, payload, md, opts...), nil
}

func (c *Codec) decodePayload(name string, raw []byte) (any, error) {
	if name == "" {
		if len(raw) > 0 && !jsoncodec.Valid(raw) {
			return nil, ErrInvalidPayload
		}
		return json.RawMessage(append([]byte(nil), raw...)), nil
	}

	c.mu.RLock()
	t, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayloadType, name)
	}

	v := reflect.New(t)
	if err := jsoncodec.Unmarshal(raw, v.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return v.Elem().Interface(), nil
}

// Encode converts msg into a watermill message. The payload type must have
// been registered, unless the payload is already json.RawMessage.
func (c *Codec) Encode(msg handling.Message) (*message.Message, error) {
	md := message.Metadata(maps.Clone(msg.Metadata()))
	if md == nil {
		md = make(message.Metadata)
	}

	var body []byte
	if raw, ok := msg.Payload().(json.RawMessage); ok {
		body = raw
		delete(md, MetadataPayloadType)
	} else {
		c.mu.RLock()
		name, ok := c.byType[msg.PayloadType()]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnregisteredType, msg.PayloadType())
		}
		var err error
		if body, err = jsoncodec.Marshal(msg.Payload()); err != nil {
			return nil, fmt.Errorf("wmbridge: encode %s: %w", name, err)
		}
		md.Set(MetadataPayloadType, name)
	}

	md.Set(MetadataCategory, string(msg.Category()))
	md.Set(MetadataTimestamp, msg.Timestamp().UTC().Format(time.RFC3339Nano))

	out := message.NewMessage(msg.ID(), body)
	out.Metadata = md
	return out, nil
}
