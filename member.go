package handling

import (
	"context"
	"fmt"
	"maps"
	"reflect"
)

// Member is one candidate handler: a Callable together with the resolvers
// bound to its parameters.
//
// A Member is immutable once created and safe for concurrent use. Handle
// may be called from any number of goroutines at once.
type Member struct {
	callable    Callable
	category    Category
	payloadType reflect.Type
	params      []Parameter
	resolvers   []ParameterResolver
	attributes  Attributes
}

// Attributes holds the metadata attached to a handler at registration time,
// keyed by kind (for example "transactional" or "timeout") and then by
// attribute name.
type Attributes map[string]map[string]any

// MemberOption configures a Member at construction.
type MemberOption func(*Member)

// WithAttributes attaches attrs under kind. A nil attrs map marks the kind
// as present without any attributes.
func WithAttributes(kind string, attrs map[string]any) MemberOption {
	return func(m *Member) {
		if m.attributes == nil {
			m.attributes = make(Attributes)
		}
		m.attributes[kind] = maps.Clone(attrs)
	}
}

// NewMember binds a resolver to every parameter of c and computes the
// payload type the handler requires.
//
// The payload type starts at payloadHint (AnyType when nil) and is narrowed
// by each resolver in parameter order: a resolver whose supported type is a
// subtype of the current one narrows it; one whose supported type is a
// supertype leaves it alone; anything else is a conflict. Conflicts and
// parameters without a resolver yield an *UnsupportedHandlerError.
//
//	call, _ := handling.MethodOf[*Orders]("Place")
//	m, err := handling.NewMember(call, handling.CategoryCommand, nil, handling.DefaultFactory())
func NewMember(c Callable, category Category, payloadHint reflect.Type, factory ParameterResolverFactory, opts ...MemberOption) (*Member, error) {
	if c == nil {
		return nil, unsupported("<nil>", "callable is nil")
	}
	if payloadHint == nil {
		payloadHint = AnyType
	}

	params := c.Params()
	resolvers := make([]ParameterResolver, len(params))
	payloadType := payloadHint
	for i, p := range params {
		var r ParameterResolver
		if factory != nil {
			r = factory.CreateInstance(c, params, i)
		}
		if r == nil {
			return nil, unsupported(c.String(), "unable to resolve parameter %d (%s)", i, p.Type)
		}
		resolvers[i] = r

		supported := r.SupportedPayloadType()
		if supported == nil {
			supported = AnyType
		}
		switch {
		case AssignableFrom(payloadType, supported):
			payloadType = supported
		case !AssignableFrom(supported, payloadType):
			return nil, unsupported(c.String(),
				"parameters put conflicting requirements on the payload type: %s vs %s",
				payloadType, supported)
		}
	}

	m := &Member{
		callable:    c,
		category:    category,
		payloadType: payloadType,
		params:      params,
		resolvers:   resolvers,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PayloadType returns the most specific payload type accepted by every
// resolver of the member.
func (m *Member) PayloadType() reflect.Type { return m.payloadType }

// Priority ranks members competing for the same message: members binding
// more parameters are assumed to be more specific. It is a heuristic, not a
// guarantee; ties are left to the Router.
func (m *Member) Priority() int { return len(m.resolvers) }

// Category returns the message category the member is bound to.
func (m *Member) Category() Category { return m.category }

// Callable returns the wrapped callable.
func (m *Member) Callable() Callable { return m.callable }

// CanHandle reports whether the member applies to msg: the category matches,
// the payload is of the member's payload type, and every resolver matches.
// Nothing is cached; metadata may differ between messages with the same
// payload type.
func (m *Member) CanHandle(msg Message) bool {
	if msg == nil || !m.category.accepts(msg.Category()) {
		return false
	}
	if !AssignableFrom(m.payloadType, msg.PayloadType()) {
		return false
	}
	for _, r := range m.resolvers {
		if !r.Matches(msg) {
			return false
		}
	}
	return true
}

// Handle resolves every parameter from msg and invokes the callable.
//
// Instance members are invoked on target; factory members ignore target and
// return the constructed value. An error returned by the callable is passed
// through unchanged, as is a *FatalError from a resolver. A panic raised by
// the callable is not recovered. Any other failure to resolve arguments or
// to bind target is reported as an *InvocationError.
//
// Callers must check CanHandle first: handling a message the member does
// not apply to is a programming error.
func (m *Member) Handle(ctx context.Context, msg Message, target any) (any, error) {
	args, err := m.resolveArgs(ctx, msg)
	if err != nil {
		if IsFatal(err) {
			return nil, err
		}
		return nil, m.invocationError(msg, err)
	}

	switch c := m.callable.(type) {
	case *InstanceCall:
		recv, err := c.bind(target)
		if err != nil {
			return nil, m.invocationError(msg, err)
		}
		return c.call(recv, args)
	case *FactoryCall:
		return c.call(args)
	default:
		panic(fmt.Sprintf("handling: unknown callable shape %T", m.callable))
	}
}

func (m *Member) resolveArgs(ctx context.Context, msg Message) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(m.resolvers))
	for i, r := range m.resolvers {
		v, err := r.Resolve(ctx, msg)
		if IsFatal(err) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("resolve parameter %d: %w", i, err)
		}
		want := m.params[i].Type
		if v == nil {
			args[i] = reflect.Zero(want)
			continue
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(want) {
			return nil, fmt.Errorf("parameter %d: resolved %s is not assignable to %s", i, rv.Type(), want)
		}
		args[i] = rv
	}
	return args, nil
}

func (m *Member) invocationError(msg Message, cause error) error {
	var pt reflect.Type
	if msg != nil {
		pt = msg.PayloadType()
	}
	return &InvocationError{PayloadType: pt, Cause: cause}
}

// Attributes returns a copy of the attributes attached under kind.
func (m *Member) Attributes(kind string) (map[string]any, bool) {
	attrs, ok := m.attributes[kind]
	if !ok {
		return nil, false
	}
	return maps.Clone(attrs), true
}

// HasAttribute reports whether the member was tagged with kind.
func (m *Member) HasAttribute(kind string) bool {
	_, ok := m.attributes[kind]
	return ok
}

// String implements fmt.Stringer.
func (m *Member) String() string {
	return "Member " + m.callable.String()
}

// Unwrap returns the member's callable as T when it is one.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
//
//	if call, ok := handling.Unwrap[*handling.FactoryCall](m); ok {
//	    log.Println("constructs", call.Produces())
//	}
func Unwrap[T any](m *Member) (T, bool) {
	c, ok := m.callable.(T)
	return c, ok
}
