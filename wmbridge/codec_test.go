package wmbridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/handling"
)

type ReserveStock struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type StockReserved struct {
	SKU string `json:"sku"`
}

func newCodec() *Codec {
	c := NewCodec()
	Register[ReserveStock](c, "stock.reserve")
	Register[StockReserved](c, "stock.reserved")
	return c
}

func TestCodec_Decode(t *testing.T) {
	c := newCodec()

	t.Run("registered payload", func(t *testing.T) {
		msg := message.NewMessage("01HX", []byte(`{"sku":"A-1","qty":3}`))
		msg.Metadata.Set(MetadataPayloadType, "stock.reserve")
		msg.Metadata.Set(MetadataCategory, "command")
		msg.Metadata.Set(MetadataTimestamp, "2026-01-02T03:04:05Z")
		msg.Metadata.Set("tenant", "acme")

		m, err := c.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, "01HX", m.ID())
		assert.Equal(t, handling.CategoryCommand, m.Category())
		assert.Equal(t, ReserveStock{SKU: "A-1", Qty: 3}, m.Payload())
		assert.Equal(t, handling.TypeOf[ReserveStock](), m.PayloadType())
		assert.Equal(t, "acme", m.Metadata().Get("tenant"))
		assert.True(t, m.Timestamp().Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	})

	t.Run("unnamed payload stays raw", func(t *testing.T) {
		msg := message.NewMessage("id", []byte(`{"a":1}`))

		m, err := c.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, handling.CategoryEvent, m.Category())
		assert.Equal(t, json.RawMessage(`{"a":1}`), m.Payload())

		msg.Payload[0] = '['
		assert.Equal(t, json.RawMessage(`{"a":1}`), m.Payload(), "payload is copied")
	})

	t.Run("unknown name", func(t *testing.T) {
		msg := message.NewMessage("id", []byte(`{}`))
		msg.Metadata.Set(MetadataPayloadType, "stock.unknown")

		_, err := c.Decode(msg)
		assert.ErrorIs(t, err, ErrUnknownPayloadType)
	})

	t.Run("invalid body", func(t *testing.T) {
		msg := message.NewMessage("id", []byte(`{"sku":`))
		msg.Metadata.Set(MetadataPayloadType, "stock.reserve")

		_, err := c.Decode(msg)
		assert.ErrorContains(t, err, "decode stock.reserve")
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		msg := message.NewMessage("id", []byte(`{}`))
		msg.Metadata.Set(MetadataTimestamp, "yesterday")

		_, err := c.Decode(msg)
		assert.ErrorContains(t, err, "invalid timestamp")
	})

	t.Run("timestamp outside ulid range", func(t *testing.T) {
		for _, ts := range []string{"0001-01-01T00:00:00Z", "1969-12-31T23:59:59Z"} {
			msg := message.NewMessage("id", []byte(`{}`))
			msg.Metadata.Set(MetadataTimestamp, ts)

			var err error
			require.NotPanics(t, func() { _, err = c.Decode(msg) })
			assert.ErrorContains(t, err, "invalid timestamp", ts)
		}
	})

	t.Run("epoch timestamp", func(t *testing.T) {
		msg := message.NewMessage("", []byte(`{}`))
		msg.Metadata.Set(MetadataTimestamp, "1970-01-01T00:00:00Z")

		m, err := c.Decode(msg)
		require.NoError(t, err)
		assert.True(t, m.Timestamp().Equal(time.Unix(0, 0)))
		assert.Len(t, m.ID(), 26, "missing UUID gets a generated id")
	})

	t.Run("unnamed payload must be json", func(t *testing.T) {
		_, err := c.Decode(message.NewMessage("id", []byte("plain text")))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("default category", func(t *testing.T) {
		c := NewCodec(WithDefaultCategory(handling.CategoryQuery))
		m, err := c.Decode(message.NewMessage("id", nil))
		require.NoError(t, err)
		assert.Equal(t, handling.CategoryQuery, m.Category())
	})
}

func TestCodec_Encode(t *testing.T) {
	c := newCodec()
	ts := time.Date(2026, 5, 6, 7, 8, 9, 10, time.UTC)

	in := handling.NewEvent(StockReserved{SKU: "A-1"}, handling.Metadata{"tenant": "acme"},
		handling.WithID("evt-1"), handling.WithTimestamp(ts))

	out, err := c.Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", out.UUID)
	assert.JSONEq(t, `{"sku":"A-1"}`, string(out.Payload))
	assert.Equal(t, "stock.reserved", out.Metadata.Get(MetadataPayloadType))
	assert.Equal(t, "event", out.Metadata.Get(MetadataCategory))
	assert.Equal(t, "acme", out.Metadata.Get("tenant"))

	back, err := c.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, in.Payload(), back.Payload())
	assert.True(t, ts.Equal(back.Timestamp()))

	_, err = c.Encode(handling.NewEvent(struct{}{}, nil))
	assert.ErrorIs(t, err, ErrUnregisteredType)

	raw, err := c.Encode(handling.NewEvent(json.RawMessage(`[1]`), handling.Metadata{MetadataPayloadType: "stale"}))
	require.NoError(t, err)
	assert.Equal(t, "[1]", string(raw.Payload))
	assert.Empty(t, raw.Metadata.Get(MetadataPayloadType))
}

func TestRegister_Replaces(t *testing.T) {
	c := NewCodec()
	Register[ReserveStock](c, "stock")
	Register[StockReserved](c, "stock")

	msg := message.NewMessage("id", []byte(`{"sku":"B"}`))
	msg.Metadata.Set(MetadataPayloadType, "stock")
	m, err := c.Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, StockReserved{SKU: "B"}, m.Payload())

	_, err = c.Encode(handling.NewCommand(ReserveStock{}, nil))
	assert.ErrorIs(t, err, ErrUnregisteredType)
}
