package handling

import "context"

// Proc (procedure) handles a payload without returning a result.
// Use this for fire-and-forget patterns like event handlers.
//
// Example:
//
//	type UserCreatedProc struct {
//	    db *sql.DB
//	}
//
//	func (p *UserCreatedProc) Run(ctx context.Context, evt UserCreated) error {
//	    _, err := p.db.ExecContext(ctx, "INSERT INTO users ...", evt.UserID)
//	    return err
//	}
type Proc[T any] interface {
	Run(ctx context.Context, payload T) error
}

// ProcFunc is a function adapter for Proc:
//
//	handling.RegisterProc(r, handling.CategoryEvent, handling.ProcFunc[UserCreated](
//	    func(ctx context.Context, evt UserCreated) error { return nil },
//	))
type ProcFunc[T any] func(ctx context.Context, payload T) error

// Run implements the Proc interface.
func (f ProcFunc[T]) Run(ctx context.Context, payload T) error {
	return f(ctx, payload)
}

// Func (function) handles a payload and returns a typed result.
// Use this for request-response patterns like queries.
type Func[T, R any] interface {
	Call(ctx context.Context, payload T) (R, error)
}

// FuncFunc is a function adapter for Func.
type FuncFunc[T, R any] func(ctx context.Context, payload T) (R, error)

// Call implements the Func interface.
func (f FuncFunc[T, R]) Call(ctx context.Context, payload T) (R, error) {
	return f(ctx, payload)
}

// RegisterProc registers p for messages of category carrying a T payload.
// The member is a factory member, so it runs regardless of the router's
// target, and Handle returns a nil result for it.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
func RegisterProc[T any](r *Router, category Category, p Proc[T], opts ...MemberOption) error {
	call, err := Factory(func(ctx context.Context, payload T) (any, error) {
		return nil, p.Run(ctx, payload)
	})
	if err != nil {
		return err
	}
	return r.Add(call, category, TypeOf[T](), DefaultFactory(), opts...)
}

// RegisterFunc registers f for messages of category carrying a T payload.
// Handle returns the R produced by f.
func RegisterFunc[T, R any](r *Router, category Category, f Func[T, R], opts ...MemberOption) error {
	call, err := Factory(func(ctx context.Context, payload T) (R, error) {
		return f.Call(ctx, payload)
	})
	if err != nil {
		return err
	}
	return r.Add(call, category, TypeOf[T](), DefaultFactory(), opts...)
}
