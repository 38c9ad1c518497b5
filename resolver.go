package handling

import (
	"context"
	"reflect"
)

// ParameterResolver extracts the value of one handler parameter from a
// message.
//
// Resolvers are created once per parameter when a Member is built and are
// then shared by every invocation of that Member, so they must be safe for
// concurrent use.
type ParameterResolver interface {
	// SupportedPayloadType is the most general payload type for which this
	// resolver can ever produce a value. Resolvers that do not look at the
	// payload return AnyType.
	SupportedPayloadType() reflect.Type

	// Matches reports whether the resolver can produce a value for msg.
	Matches(msg Message) bool

	// Resolve produces the parameter value for msg. A nil value becomes the
	// zero value of the parameter type.
	Resolve(ctx context.Context, msg Message) (any, error)
}

// ParameterResolverFactory creates the resolver for the parameter at index.
// It may inspect the other parameters to decide, and returns nil when it has
// no resolver for that position.
type ParameterResolverFactory interface {
	CreateInstance(c Callable, params []Parameter, index int) ParameterResolver
}

// FactoryFunc is a function adapter for ParameterResolverFactory.
type FactoryFunc func(c Callable, params []Parameter, index int) ParameterResolver

// CreateInstance implements the ParameterResolverFactory interface.
func (f FactoryFunc) CreateInstance(c Callable, params []Parameter, index int) ParameterResolver {
	return f(c, params, index)
}

// MultiFactory combines factories. The first factory returning a non-nil
// resolver for a parameter wins, so factories registered earlier take
// precedence. A PayloadFactory in the chain treats parameters resolved by
// the factories before it as taken, so
//
//	handling.MultiFactory(handling.BindMetadata(0, "tenant", true), handling.DefaultFactory())
//
// binds the payload to the parameter after tenant.
func MultiFactory(factories ...ParameterResolverFactory) ParameterResolverFactory {
	flat := make(multiFactory, 0, len(factories))
	for _, f := range factories {
		switch f := f.(type) {
		case nil:
		case multiFactory:
			flat = append(flat, f...)
		default:
			flat = append(flat, f)
		}
	}
	return flat
}

type multiFactory []ParameterResolverFactory

func (m multiFactory) CreateInstance(c Callable, params []Parameter, index int) ParameterResolver {
	for i, f := range m {
		var r ParameterResolver
		if cf, ok := f.(chainedFactory); ok {
			r = cf.createAfter(m[:i], c, params, index)
		} else {
			r = f.CreateInstance(c, params, index)
		}
		if r != nil {
			return r
		}
	}
	return nil
}

// chainedFactory is implemented by factories whose decision depends on
// what the factories ahead of them in a MultiFactory resolve.
type chainedFactory interface {
	createAfter(before multiFactory, c Callable, params []Parameter, index int) ParameterResolver
}

// ResolverFunc builds a resolver that accepts every message and resolves
// values with fn. supported is the payload type fn requires; nil means any.
func ResolverFunc(supported reflect.Type, fn func(ctx context.Context, msg Message) (any, error)) ParameterResolver {
	if supported == nil {
		supported = AnyType
	}
	return &resolverFunc{supported: supported, fn: fn}
}

type resolverFunc struct {
	supported reflect.Type
	fn        func(ctx context.Context, msg Message) (any, error)
}

func (r *resolverFunc) SupportedPayloadType() reflect.Type { return r.supported }
func (r *resolverFunc) Matches(Message) bool                { return true }
func (r *resolverFunc) Resolve(ctx context.Context, msg Message) (any, error) {
	return r.fn(ctx, msg)
}
