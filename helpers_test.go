package handling

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
)

type OrderEvent interface {
	OrderID() string
}

type OrderPlaced struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

func (e OrderPlaced) OrderID() string { return e.ID }

type OrderCancelled struct {
	ID string `json:"id"`
}

func (e OrderCancelled) OrderID() string { return e.ID }

type Shipment struct {
	Tracking string `json:"tracking"`
}

type invoice struct {
	OrderID string
	Tenant  string
}

var errOutOfStock = errors.New("out of stock")

type orders struct {
	placed atomic.Int64
	err    error
}

func (o *orders) Place(ctx context.Context, cmd OrderPlaced) error {
	if ctx == nil {
		panic("nil context")
	}
	o.placed.Add(1)
	return o.err
}

func (o *orders) Describe(evt OrderEvent, tenant string) string {
	return tenant + ":" + evt.OrderID()
}

func (o *orders) Collect(a, b, c any) []any {
	return []any{a, b, c}
}

func (o *orders) Echo(s string) string {
	return strings.ToUpper(s)
}

func (o *orders) Quote(cmd OrderPlaced) (int, error) {
	if cmd.Amount < 0 {
		return 0, o.err
	}
	return cmd.Amount * 2, nil
}

func (o *orders) Explode(OrderPlaced) {
	panic("boom")
}

func (o *orders) Ping() string { return "pong" }

func (o *orders) Pair() (int, int) { return 1, 2 }

func (o *orders) Spread(...string) {}

func (o *orders) hidden(OrderPlaced) {}

type shipments struct{}

func (shipments) Ship(s Shipment) string { return s.Tracking }

func newInvoice(evt OrderPlaced, md Metadata) (*invoice, error) {
	if evt.ID == "" {
		return nil, errOutOfStock
	}
	return &invoice{OrderID: evt.ID, Tenant: md.Get("tenant")}, nil
}

// stubResolver is a ParameterResolver with fixed answers.
type stubResolver struct {
	supported reflect.Type
	match     func(Message) bool
	value     func(Message) any
	err       error
}

func (s *stubResolver) SupportedPayloadType() reflect.Type { return s.supported }

func (s *stubResolver) Matches(msg Message) bool {
	if s.match == nil {
		return true
	}
	return s.match(msg)
}

func (s *stubResolver) Resolve(_ context.Context, msg Message) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.value == nil {
		return nil, nil
	}
	return s.value(msg), nil
}

func supporting(t reflect.Type) *stubResolver {
	return &stubResolver{supported: t}
}

func constant(v any) *stubResolver {
	return &stubResolver{supported: AnyType, value: func(Message) any { return v }}
}

// positional hands out resolvers by parameter index.
func positional(rs ...ParameterResolver) ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, _ []Parameter, index int) ParameterResolver {
		if index >= len(rs) {
			return nil
		}
		return rs[index]
	})
}

func mustMethod(name string) *InstanceCall {
	c, err := MethodOf[*orders](name)
	if err != nil {
		panic(err)
	}
	return c
}
