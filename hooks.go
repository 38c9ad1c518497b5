package handling

import (
	"context"
	"time"
)

// OnReceiveFunc is called when the router receives a message, before any
// member is selected. Use this to enrich the context with logging fields or
// trace spans. The returned context is used for the rest of the dispatch.
type OnReceiveFunc func(ctx context.Context, msg Message) context.Context

// OnDispatchFunc is called just before the selected member executes.
type OnDispatchFunc func(ctx context.Context, msg Message, m *Member)

// OnSuccessFunc is called after the member completes successfully.
type OnSuccessFunc func(ctx context.Context, msg Message, m *Member, duration time.Duration)

// OnFailureFunc is called after the member fails, whatever the class of the
// error.
type OnFailureFunc func(ctx context.Context, msg Message, m *Member, err error, duration time.Duration)

// OnNoHandlerFunc is called when no member can handle the message.
// Return nil to skip, return an error to fail.
type OnNoHandlerFunc func(ctx context.Context, msg Message) error

// OnCompleteFunc is called once per Handle call with the member that ran
// (nil when none applied) and the error Handle returns, or
// ErrHandlerPanicked when the member panicked. It observes the outcome and
// cannot change it.
type OnCompleteFunc func(ctx context.Context, msg Message, m *Member, err error)

// hooks holds all configured hook functions.
type hooks struct {
	onReceive   []OnReceiveFunc
	onDispatch  []OnDispatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onNoHandler []OnNoHandlerFunc
	onComplete  []OnCompleteFunc
}

// WithOnReceive adds a hook called when a message arrives.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	handling.WithOnReceive(func(ctx context.Context, msg handling.Message) context.Context {
//	    return logx.WithCtx(ctx, slog.String("message_id", msg.ID()))
//	})
func WithOnReceive(fn OnReceiveFunc) Option {
	return func(r *Router) {
		r.hooks.onReceive = append(r.hooks.onReceive, fn)
	}
}

// WithOnDispatch adds a hook called just before the member executes.
// Multiple hooks are called in order.
//
// Example:
//
//	handling.WithOnDispatch(func(ctx context.Context, msg handling.Message, m *handling.Member) {
//	    logger.Info(ctx, "dispatching", "member", m.String())
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(r *Router) {
		r.hooks.onDispatch = append(r.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after the member completes successfully.
// Multiple hooks are called in order.
//
// Example:
//
//	handling.WithOnSuccess(func(ctx context.Context, msg handling.Message, m *handling.Member, d time.Duration) {
//	    metrics.Timing("handling.success", d)
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Router) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after the member fails.
// Multiple hooks are called in order.
//
// Example:
//
//	handling.WithOnFailure(func(ctx context.Context, msg handling.Message, m *handling.Member, err error, d time.Duration) {
//	    metrics.Incr("handling.failure", "class:"+handling.Classify(err).String())
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Router) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when no member can handle a message.
// Return nil to skip, return an error to fail.
// Multiple hooks are called in order; first error wins.
//
// Example:
//
//	handling.WithOnNoHandler(func(ctx context.Context, msg handling.Message) error {
//	    logger.Warn(ctx, "unhandled", "payload", msg.PayloadType())
//	    return nil // skip
//	})
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(r *Router) {
		r.hooks.onNoHandler = append(r.hooks.onNoHandler, fn)
	}
}

// WithOnComplete adds a hook called when Handle finishes, whether or not a
// member applied. It also runs while a handler panic unwinds.
//
// Example:
//
//	handling.WithOnComplete(func(ctx context.Context, msg handling.Message, m *handling.Member, err error) {
//	    trace.SpanFromContext(ctx).End()
//	})
func WithOnComplete(fn OnCompleteFunc) Option {
	return func(r *Router) {
		r.hooks.onComplete = append(r.hooks.onComplete, fn)
	}
}

// callOnReceive calls OnReceive hooks in order.
func (r *Router) callOnReceive(ctx context.Context, msg Message) context.Context {
	for _, fn := range r.hooks.onReceive {
		ctx = fn(ctx, msg)
	}
	return ctx
}

// callOnDispatch calls OnDispatch hooks in order.
func (r *Router) callOnDispatch(ctx context.Context, msg Message, m *Member) {
	for _, fn := range r.hooks.onDispatch {
		fn(ctx, msg, m)
	}
}

// callOnSuccess calls OnSuccess hooks in order.
func (r *Router) callOnSuccess(ctx context.Context, msg Message, m *Member, duration time.Duration) {
	for _, fn := range r.hooks.onSuccess {
		fn(ctx, msg, m, duration)
	}
}

// callOnFailure calls OnFailure hooks in order.
func (r *Router) callOnFailure(ctx context.Context, msg Message, m *Member, err error, duration time.Duration) {
	for _, fn := range r.hooks.onFailure {
		fn(ctx, msg, m, err, duration)
	}
}

// callOnComplete calls OnComplete hooks in order.
func (r *Router) callOnComplete(ctx context.Context, msg Message, m *Member, err error) {
	for _, fn := range r.hooks.onComplete {
		fn(ctx, msg, m, err)
	}
}
