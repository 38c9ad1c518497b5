package wmbridge

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/handling"
)

var errNoStock = errors.New("no stock")

type warehouse struct {
	reserved chan ReserveStock
}

func (w *warehouse) Reserve(ctx context.Context, cmd ReserveStock, tenant string) (StockReserved, error) {
	if cmd.Qty <= 0 {
		return StockReserved{}, errNoStock
	}
	if w.reserved != nil {
		w.reserved <- cmd
	}
	return StockReserved{SKU: tenant + "/" + cmd.SKU}, nil
}

func warehouseRouter(t *testing.T, w *warehouse) *handling.Router {
	t.Helper()
	r := handling.NewRouter(w)
	call, err := handling.MethodOf[*warehouse]("Reserve")
	require.NoError(t, err)
	require.NoError(t, r.Add(call, handling.CategoryCommand, nil, handling.MultiFactory(
		handling.BindMetadata(2, "tenant", false),
		handling.DefaultFactory(),
	)))
	return r
}

func reserveMessage(qty int) *message.Message {
	msg := message.NewMessage(watermill.NewULID(), []byte(fmt.Sprintf(`{"sku":"A-1","qty":%d}`, qty)))
	msg.Metadata.Set(MetadataPayloadType, "stock.reserve")
	msg.Metadata.Set(MetadataCategory, "command")
	msg.Metadata.Set("tenant", "acme")
	return msg
}

func TestNoPublishHandler(t *testing.T) {
	h := NoPublishHandler(warehouseRouter(t, &warehouse{}), newCodec())

	assert.NoError(t, h(reserveMessage(2)))
	assert.ErrorIs(t, h(reserveMessage(0)), errNoStock)

	unknown := message.NewMessage("id", []byte(`{}`))
	unknown.Metadata.Set(MetadataPayloadType, "nope")
	assert.ErrorIs(t, h(unknown), ErrUnknownPayloadType)

	event := reserveMessage(1)
	event.Metadata.Set(MetadataCategory, "event")
	assert.ErrorIs(t, h(event), handling.ErrNoHandler)
}

func TestHandler_PublishesResult(t *testing.T) {
	h := Handler(warehouseRouter(t, &warehouse{}), newCodec())

	out, err := h(reserveMessage(2))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.JSONEq(t, `{"sku":"acme/A-1"}`, string(out[0].Payload))
	assert.Equal(t, "stock.reserved", out[0].Metadata.Get(MetadataPayloadType))
	assert.Equal(t, "event", out[0].Metadata.Get(MetadataCategory))
	assert.Equal(t, "acme", out[0].Metadata.Get("tenant"))

	out, err = h(reserveMessage(0))
	assert.ErrorIs(t, err, errNoStock)
	assert.Empty(t, out)
}

func TestNoPublishHandler_WatermillRouter(t *testing.T) {
	logger := watermill.NopLogger{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubSub.Close()

	wmRouter, err := message.NewRouter(message.RouterConfig{}, logger)
	require.NoError(t, err)

	w := &warehouse{reserved: make(chan ReserveStock, 1)}
	wmRouter.AddNoPublisherHandler("reserve", "stock", pubSub, NoPublishHandler(warehouseRouter(t, w), newCodec()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = wmRouter.Run(ctx) }()
	<-wmRouter.Running()

	require.NoError(t, pubSub.Publish("stock", reserveMessage(4)))

	select {
	case got := <-w.reserved:
		assert.Equal(t, ReserveStock{SKU: "A-1", Qty: 4}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("message not handled")
	}
}
