package handling

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// Router selects among the members registered for one target and invokes
// the most specific member that can handle each message.
//
// Usage:
//  1. Create a router with NewRouter, passing the handler target
//  2. Register members with Register or Add
//  3. Dispatch messages with Handle
//
// Router is safe for concurrent use after configuration. Do not call
// Register or Add after calling Handle.
type Router struct {
	target  any
	members []*Member
	hooks   hooks
	logger  watermill.LoggerAdapter
}

// Option configures a Router.
type Option func(*Router)

// NewRouter creates a Router dispatching to target. Instance members are
// invoked on target; factory members ignore it, so target may be nil for
// a router holding only factories.
//
// Example:
//
//	r := handling.NewRouter(orders,
//	    handling.WithLogger(watermill.NewSlogLogger(slog.Default())),
//	    handling.WithOnFailure(func(ctx context.Context, msg handling.Message, m *handling.Member, err error, d time.Duration) {
//	        metrics.Incr("handling.failure")
//	    }),
//	)
func NewRouter(target any, opts ...Option) *Router {
	r := &Router{
		target: target,
		logger: watermill.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithLogger sets the logger used to report dispatch outcomes.
func WithLogger(l watermill.LoggerAdapter) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Register adds members. Members are kept ordered by descending priority;
// members of equal priority keep their registration order.
func (r *Router) Register(members ...*Member) {
	for _, m := range members {
		if m != nil {
			r.members = append(r.members, m)
		}
	}
	slices.SortStableFunc(r.members, func(a, b *Member) int {
		return b.Priority() - a.Priority()
	})
}

// Add builds a member from c and registers it. The returned error is the
// one NewMember reports; the router is unchanged in that case, so callers
// may skip the candidate and continue with others.
//
// Example:
//
//	call, _ := handling.MethodOf[*Orders]("Place")
//	if err := r.Add(call, handling.CategoryCommand, nil, handling.DefaultFactory()); err != nil {
//	    return err
//	}
func (r *Router) Add(c Callable, category Category, payloadHint reflect.Type, factory ParameterResolverFactory, opts ...MemberOption) error {
	m, err := NewMember(c, category, payloadHint, factory, opts...)
	if err != nil {
		return err
	}
	r.Register(m)
	return nil
}

// Target returns the value instance members are invoked on.
func (r *Router) Target() any { return r.target }

// Members returns the registered members in dispatch order.
func (r *Router) Members() []*Member {
	return slices.Clone(r.members)
}

// MembersWith returns the members tagged with the attribute kind, in
// dispatch order.
func (r *Router) MembersWith(kind string) []*Member {
	var out []*Member
	for _, m := range r.members {
		if m.HasAttribute(kind) {
			out = append(out, m)
		}
	}
	return out
}

// Resolve returns the first member, in dispatch order, that can handle msg.
func (r *Router) Resolve(msg Message) (*Member, bool) {
	for _, m := range r.members {
		if m.CanHandle(msg) {
			return m, true
		}
	}
	return nil, false
}

// CanHandle reports whether any registered member can handle msg.
func (r *Router) CanHandle(msg Message) bool {
	_, ok := r.Resolve(msg)
	return ok
}

// Handle selects the member for msg, invokes it, and runs the hooks.
//
// The processing flow:
//  1. Call OnReceive hooks
//  2. Select the highest-priority member whose CanHandle is true
//  3. Call OnDispatch hooks
//  4. Invoke the member on the router's target
//  5. Call OnSuccess or OnFailure hooks
//  6. Call OnComplete hooks with the outcome
//
// A panic in the member is not recovered. OnComplete hooks still run, with
// ErrHandlerPanicked, while the panic propagates.
//
// Errors from the member are returned exactly as the member returned them.
// When no member applies, OnNoHandler hooks decide the outcome; without
// hooks the error wraps ErrNoHandler.
func (r *Router) Handle(ctx context.Context, msg Message) (any, error) {
	ctx = r.callOnReceive(ctx, msg)

	m, ok := r.Resolve(msg)
	if !ok {
		err := r.handleNoHandler(ctx, msg)
		r.callOnComplete(ctx, msg, nil, err)
		return nil, err
	}

	fields := logFields(msg).Add(watermill.LogFields{"member": m.String()})
	r.callOnDispatch(ctx, msg, m)
	r.logger.Debug("Dispatching message", fields)

	returned := false
	defer func() {
		if !returned {
			r.logger.Error("Message handler panicked", ErrHandlerPanicked, fields)
			r.callOnComplete(ctx, msg, m, ErrHandlerPanicked)
		}
	}()

	start := time.Now()
	result, err := m.Handle(ctx, msg, r.target)
	returned = true
	duration := time.Since(start)

	fields = fields.Add(watermill.LogFields{"duration": duration})
	if err != nil {
		r.callOnFailure(ctx, msg, m, err, duration)
		r.logger.Error("Message handler failed", err, fields.Add(watermill.LogFields{
			"error_class": Classify(err).String(),
		}))
		r.callOnComplete(ctx, msg, m, err)
		return nil, err
	}

	r.callOnSuccess(ctx, msg, m, duration)
	r.logger.Trace("Message handled", fields)
	r.callOnComplete(ctx, msg, m, nil)
	return result, nil
}

// handleNoHandler handles the case when no member applies.
func (r *Router) handleNoHandler(ctx context.Context, msg Message) error {
	r.logger.Info("No handler for message", logFields(msg))

	for _, fn := range r.hooks.onNoHandler {
		if err := fn(ctx, msg); err != nil {
			return err
		}
	}
	if len(r.hooks.onNoHandler) > 0 {
		return nil
	}
	return fmt.Errorf("%w: %s message with payload %s", ErrNoHandler, msg.Category(), typeName(msg.PayloadType()))
}

func logFields(msg Message) watermill.LogFields {
	return watermill.LogFields{
		"message_id":   msg.ID(),
		"category":     msg.Category().String(),
		"payload_type": typeName(msg.PayloadType()),
	}
}
