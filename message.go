package handling

import (
	"reflect"
	"time"

	"github.com/bjaus/handling/internal/ids"
)

// Category is the coarse kind of a message. A Member is bound to a single
// category and ignores messages of any other.
type Category string

// Known message categories.
const (
	// CategoryAny, when bound to a Member, accepts every category.
	CategoryAny     Category = ""
	CategoryCommand Category = "command"
	CategoryEvent   Category = "event"
	CategoryQuery   Category = "query"
)

// String implements fmt.Stringer.
func (c Category) String() string {
	if c == CategoryAny {
		return "any"
	}
	return string(c)
}

// accepts reports whether a member bound to c can see a message of other.
func (c Category) accepts(other Category) bool {
	return c == CategoryAny || c == other
}

// Message is a payload plus metadata travelling through the system.
// Implementations must be immutable once handed to a Router or Member.
type Message interface {
	// ID uniquely identifies the message.
	ID() string

	// Category is the coarse kind of the message.
	Category() Category

	// Payload is the business data carried by the message. It may be nil.
	Payload() any

	// PayloadType is the runtime type of the payload. It is nil only when
	// the payload is nil and no explicit type was declared.
	PayloadType() reflect.Type

	// Metadata holds the headers carried alongside the payload.
	Metadata() Metadata

	// Timestamp is the moment the message was created.
	Timestamp() time.Time
}

// Metadata represents the headers carried alongside a payload.
type Metadata map[string]string

// Get returns the value stored under key, or "" when absent.
func (m Metadata) Get(key string) string {
	return m[key]
}

// Lookup returns the value stored under key and whether it was present.
func (m Metadata) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// GenericMessage is the default Message implementation.
type GenericMessage struct {
	id          string
	category    Category
	payload     any
	payloadType reflect.Type
	metadata    Metadata
	timestamp   time.Time
}

// MessageOption customizes a GenericMessage at construction.
type MessageOption func(*GenericMessage)

// WithID overrides the generated message identifier.
func WithID(id string) MessageOption {
	return func(m *GenericMessage) {
		m.id = id
	}
}

// WithTimestamp overrides the creation time of the message.
func WithTimestamp(ts time.Time) MessageOption {
	return func(m *GenericMessage) {
		m.timestamp = ts
	}
}

// WithPayloadType declares the payload type explicitly. Use this when the
// payload is nil but its intended type is known, or to present a payload
// as one of its interfaces.
func WithPayloadType(t reflect.Type) MessageOption {
	return func(m *GenericMessage) {
		m.payloadType = t
	}
}

// NewMessage creates a message of the given category. The metadata map is
// copied so later changes by the caller are not observed.
func NewMessage(category Category, payload any, md Metadata, opts ...MessageOption) *GenericMessage {
	m := &GenericMessage{
		category:    category,
		payload:     payload,
		payloadType: reflect.TypeOf(payload),
		metadata:    md.Clone(),
		timestamp:   time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.id == "" {
		m.id = ids.At(m.timestamp)
	}
	return m
}

// NewCommand creates a command message.
func NewCommand(payload any, md Metadata, opts ...MessageOption) *GenericMessage {
	return NewMessage(CategoryCommand, payload, md, opts...)
}

// NewEvent creates an event message.
func NewEvent(payload any, md Metadata, opts ...MessageOption) *GenericMessage {
	return NewMessage(CategoryEvent, payload, md, opts...)
}

// NewQuery creates a query message.
func NewQuery(payload any, md Metadata, opts ...MessageOption) *GenericMessage {
	return NewMessage(CategoryQuery, payload, md, opts...)
}

func (m *GenericMessage) ID() string                { return m.id }
func (m *GenericMessage) Category() Category        { return m.category }
func (m *GenericMessage) Payload() any              { return m.payload }
func (m *GenericMessage) PayloadType() reflect.Type { return m.payloadType }
func (m *GenericMessage) Metadata() Metadata        { return m.metadata }
func (m *GenericMessage) Timestamp() time.Time      { return m.timestamp }
