package handling

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bjaus/handling/internal/jsoncodec"
)

var (
	contextType    = reflect.TypeFor[context.Context]()
	messageType    = reflect.TypeFor[Message]()
	metadataType   = reflect.TypeFor[Metadata]()
	timeType       = reflect.TypeFor[time.Time]()
	rawMessageType = reflect.TypeFor[json.RawMessage]()
)

// DefaultFactory returns the resolvers every Router understands, in order
// of precedence:
//
//   - context.Context: the context passed to Handle
//   - Message (or a concrete message type): the message itself
//   - Metadata: the message headers
//   - time.Time: the message timestamp
//   - any other type: the payload, for the first such parameter only
//
// So all of these are valid handlers:
//
//	func (h *Orders) Place(ctx context.Context, cmd PlaceOrder) error
//	func (h *Orders) Placed(evt OrderPlaced, at time.Time)
//	func NewOrder(cmd CreateOrder, md handling.Metadata) (*Order, error)
func DefaultFactory() ParameterResolverFactory {
	return MultiFactory(
		ContextFactory(),
		MessageFactory(),
		MetadataFactory(),
		TimestampFactory(),
		PayloadFactory(),
	)
}

// isAmbient reports whether t is resolved from something other than the
// payload by DefaultFactory.
func isAmbient(t reflect.Type) bool {
	return t == contextType || t == metadataType || t == timeType || t.Implements(messageType)
}

// ContextFactory resolves context.Context parameters to the dispatch context.
func ContextFactory() ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, index int) ParameterResolver {
		if params[index].Type != contextType {
			return nil
		}
		return ResolverFunc(AnyType, func(ctx context.Context, _ Message) (any, error) {
			return ctx, nil
		})
	})
}

// MessageFactory resolves parameters typed as Message, or as a concrete
// Message implementation, to the message being handled.
func MessageFactory() ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, index int) ParameterResolver {
		t := params[index].Type
		if !t.Implements(messageType) {
			return nil
		}
		return &messageResolver{typ: t}
	})
}

type messageResolver struct {
	typ reflect.Type
}

func (r *messageResolver) SupportedPayloadType() reflect.Type { return AnyType }

func (r *messageResolver) Matches(msg Message) bool {
	return msg != nil && reflect.TypeOf(msg).AssignableTo(r.typ)
}

func (r *messageResolver) Resolve(_ context.Context, msg Message) (any, error) {
	return msg, nil
}

// MetadataFactory resolves Metadata parameters to the message headers.
func MetadataFactory() ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, index int) ParameterResolver {
		if params[index].Type != metadataType {
			return nil
		}
		return ResolverFunc(AnyType, func(_ context.Context, msg Message) (any, error) {
			return msg.Metadata(), nil
		})
	})
}

// TimestampFactory resolves time.Time parameters to the message timestamp.
func TimestampFactory() ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, index int) ParameterResolver {
		if params[index].Type != timeType {
			return nil
		}
		return ResolverFunc(AnyType, func(_ context.Context, msg Message) (any, error) {
			return msg.Timestamp(), nil
		})
	})
}

// PayloadFactory resolves the first parameter that no other factory claims
// to the message payload. That parameter's type is the payload type the
// handler requires. On its own, only context.Context, Message, Metadata and
// time.Time parameters count as claimed; inside a MultiFactory, so does any
// parameter resolved by a factory listed before it.
func PayloadFactory() ParameterResolverFactory {
	return payloadFactory{}
}

type payloadFactory struct{}

func (f payloadFactory) CreateInstance(c Callable, params []Parameter, index int) ParameterResolver {
	return f.createAfter(nil, c, params, index)
}

func (payloadFactory) createAfter(before multiFactory, c Callable, params []Parameter, index int) ParameterResolver {
	t := params[index].Type
	if isAmbient(t) {
		return nil
	}
	for j := range params[:index] {
		if isAmbient(params[j].Type) {
			continue
		}
		if before.CreateInstance(c, params, j) == nil {
			return nil
		}
	}
	return &payloadResolver{typ: t}
}

type payloadResolver struct {
	typ reflect.Type
}

func (r *payloadResolver) SupportedPayloadType() reflect.Type { return r.typ }

func (r *payloadResolver) Matches(msg Message) bool {
	return AssignableFrom(r.typ, msg.PayloadType())
}

func (r *payloadResolver) Resolve(_ context.Context, msg Message) (any, error) {
	return msg.Payload(), nil
}

// BindMetadata resolves the string parameter at index to the metadata value
// stored under key. When required is set, messages without the key do not
// match; otherwise the parameter receives "" for them.
func BindMetadata(index int, key string, required bool) ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, i int) ParameterResolver {
		if i != index || params[i].Type.Kind() != reflect.String {
			return nil
		}
		return &metadataValueResolver{typ: params[i].Type, key: key, required: required}
	})
}

type metadataValueResolver struct {
	typ      reflect.Type
	key      string
	required bool
}

func (r *metadataValueResolver) SupportedPayloadType() reflect.Type { return AnyType }

func (r *metadataValueResolver) Matches(msg Message) bool {
	if !r.required {
		return true
	}
	_, ok := msg.Metadata().Lookup(r.key)
	return ok
}

func (r *metadataValueResolver) Resolve(_ context.Context, msg Message) (any, error) {
	v := msg.Metadata().Get(r.key)
	return reflect.ValueOf(v).Convert(r.typ).Interface(), nil
}

// BindJSONPath resolves the parameter at index from a field of a JSON
// payload, addressed with gjson path syntax. The bound handler requires a
// json.RawMessage payload and only matches messages where the path exists.
//
//	handling.BindJSONPath(1, "order.id")
func BindJSONPath(index int, path string) ParameterResolverFactory {
	return FactoryFunc(func(_ Callable, params []Parameter, i int) ParameterResolver {
		if i != index {
			return nil
		}
		return &jsonPathResolver{typ: params[i].Type, path: path}
	})
}

type jsonPathResolver struct {
	typ  reflect.Type
	path string
}

func (r *jsonPathResolver) SupportedPayloadType() reflect.Type { return rawMessageType }

func (r *jsonPathResolver) Matches(msg Message) bool {
	raw, ok := msg.Payload().(json.RawMessage)
	return ok && gjson.GetBytes(raw, r.path).Exists()
}

func (r *jsonPathResolver) Resolve(_ context.Context, msg Message) (any, error) {
	raw, _ := msg.Payload().(json.RawMessage)
	res := gjson.GetBytes(raw, r.path)
	if !res.Exists() {
		return nil, nil
	}
	if r.typ == rawMessageType {
		return json.RawMessage(res.Raw), nil
	}
	v := reflect.New(r.typ)
	if err := jsoncodec.Unmarshal([]byte(res.Raw), v.Interface()); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}

// When gates r on d: the returned resolver only matches messages that r
// matches and whose view satisfies d.
func When(r ParameterResolver, d Discriminator) ParameterResolver {
	return &conditionalResolver{ParameterResolver: r, disc: d}
}

// WhenFactory applies When to every resolver produced by f.
func WhenFactory(f ParameterResolverFactory, d Discriminator) ParameterResolverFactory {
	return FactoryFunc(func(c Callable, params []Parameter, index int) ParameterResolver {
		r := f.CreateInstance(c, params, index)
		if r == nil {
			return nil
		}
		return When(r, d)
	})
}

type conditionalResolver struct {
	ParameterResolver
	disc Discriminator
}

func (r *conditionalResolver) Matches(msg Message) bool {
	return r.ParameterResolver.Matches(msg) && r.disc.Match(InspectMessage(msg))
}
