package handling

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	md := Metadata{"tenant": "acme"}
	msg := NewEvent(OrderPlaced{ID: "1"}, md)

	assert.Equal(t, CategoryEvent, msg.Category())
	assert.Equal(t, OrderPlaced{ID: "1"}, msg.Payload())
	assert.Equal(t, orderPlacedType, msg.PayloadType())
	assert.Len(t, msg.ID(), 26)
	assert.WithinDuration(t, time.Now(), msg.Timestamp(), time.Second)

	md["tenant"] = "changed"
	assert.Equal(t, "acme", msg.Metadata().Get("tenant"), "metadata must be copied")
}

func TestNewMessage_Options(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	msg := NewCommand(nil, nil,
		WithID("cmd-1"),
		WithTimestamp(ts),
		WithPayloadType(orderEventType),
	)

	assert.Equal(t, "cmd-1", msg.ID())
	assert.Equal(t, ts, msg.Timestamp())
	assert.Nil(t, msg.Payload())
	assert.Equal(t, orderEventType, msg.PayloadType())
	assert.NotNil(t, msg.Metadata())
}

func TestNewMessage_IDCarriesTimestamp(t *testing.T) {
	ts := time.UnixMilli(1_714_564_800_000)
	msg := NewQuery("q", nil, WithTimestamp(ts))

	id, err := ulid.ParseStrict(msg.ID())
	require.NoError(t, err)
	assert.True(t, ts.Equal(ulid.Time(id.Time())))
}

func TestNewMessage_TimestampOutsideIDRange(t *testing.T) {
	var msg *GenericMessage
	require.NotPanics(t, func() {
		msg = NewEvent(OrderPlaced{}, nil, WithTimestamp(time.Time{}))
	})
	assert.True(t, msg.Timestamp().IsZero(), "timestamp is kept as given")

	id, err := ulid.ParseStrict(msg.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id.Time())
}

func TestNewMessage_NilPayloadHasNoType(t *testing.T) {
	assert.Nil(t, NewEvent(nil, nil).PayloadType())
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "any", CategoryAny.String())
	assert.Equal(t, "command", CategoryCommand.String())
	assert.Equal(t, "event", CategoryEvent.String())
	assert.Equal(t, "query", CategoryQuery.String())
}

func TestMetadata(t *testing.T) {
	md := Metadata{"a": "1"}

	v, ok := md.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = md.Lookup("missing")
	assert.False(t, ok)

	with := md.With("b", "2")
	assert.Equal(t, Metadata{"a": "1", "b": "2"}, with)
	assert.Equal(t, Metadata{"a": "1"}, md)

	all := md.WithAll(Metadata{"a": "override", "c": "3"})
	assert.Equal(t, Metadata{"a": "override", "c": "3"}, all)
	assert.Equal(t, "1", md.Get("a"))

	var empty Metadata
	assert.Equal(t, Metadata{}, empty.Clone())
}
