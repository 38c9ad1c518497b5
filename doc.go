// Package handling resolves and invokes message handlers for command, event
// and query messages.
//
// Every message delivered into an application passes through this package
// before business logic runs: it decides which handler applies, extracts
// the arguments the handler declares, invokes it, and reports failures
// through a single error channel that never masks errors raised by handler
// code.
//
// # Quick Start
//
// Write handlers as ordinary methods:
//
//	type Orders struct {
//	    store Store
//	}
//
//	func (o *Orders) Place(ctx context.Context, cmd PlaceOrder) error {
//	    return o.store.Save(ctx, cmd.OrderID)
//	}
//
// Bind them to a router for the target and dispatch messages:
//
//	r := handling.NewRouter(&Orders{store: store})
//
//	call, err := handling.MethodOf[*Orders]("Place")
//	if err != nil {
//	    return err
//	}
//	if err := r.Add(call, handling.CategoryCommand, nil, handling.DefaultFactory()); err != nil {
//	    return err
//	}
//
//	_, err = r.Handle(ctx, handling.NewCommand(PlaceOrder{OrderID: "42"}, nil))
//
// Plain functions register through RegisterProc and RegisterFunc:
//
//	handling.RegisterProc[OrderPlaced](r, handling.CategoryEvent, handling.ProcFunc[OrderPlaced](
//	    func(ctx context.Context, evt OrderPlaced) error { return nil },
//	))
//
// # Members
//
// A Member wraps one Callable, either an *InstanceCall (a method invoked on
// the router's target) or a *FactoryCall (a constructor whose result is
// returned). NewMember asks a ParameterResolverFactory for one
// ParameterResolver per parameter and narrows the member's payload type
// with each resolver's supported payload type:
//
//	func (o *Orders) Ship(evt OrderEvent, id string) error
//
// With the payload resolver on evt (OrderEvent, an interface) and a JSON
// path resolver on id (json.RawMessage), the types are unrelated and
// NewMember fails with ErrUnsupportedHandler. With a metadata resolver on
// id (any payload), the member's payload type is OrderEvent.
//
// CanHandle checks the category, the payload type and every resolver's
// Matches. Priority is the parameter count; the Router tries members with
// higher priority first.
//
// # Resolvers
//
// DefaultFactory resolves context.Context, Message, Metadata, time.Time
// and the payload. Compose it with BindMetadata and BindJSONPath for
// header values and JSON fields:
//
//	factory := handling.MultiFactory(
//	    handling.BindMetadata(2, "tenant", true),
//	    handling.DefaultFactory(),
//	)
//
// When gates a resolver on a Discriminator evaluated over InspectMessage:
//
//	handling.WhenFactory(handling.DefaultFactory(), handling.MetadataEquals("version", "2"))
//
// # Errors
//
// Member.Handle and Router.Handle return:
//
//   - the handler's own error, unchanged, when the handler fails
//   - a *FatalError, unchanged, when the handler marked its error with Fatal
//   - an *InvocationError (ErrInvocation) when the arguments could not be
//     resolved or the target could not receive the call
//
// A panic inside a handler is not recovered. Classify sorts errors into
// these classes for logging and metrics.
//
// # Hooks
//
// Hooks provide observability without coupling to specific logging or
// metrics systems:
//
//	r := handling.NewRouter(target,
//	    handling.WithOnReceive(func(ctx context.Context, msg handling.Message) context.Context {
//	        return logx.WithCtx(ctx, slog.String("message_id", msg.ID()))
//	    }),
//	    handling.WithOnSuccess(func(ctx context.Context, msg handling.Message, m *handling.Member, d time.Duration) {
//	        metrics.Timing("handling.success", d)
//	    }),
//	)
//
// OnComplete hooks see the final outcome of every Handle call, including
// messages no member applied to.
//
// The observe subpackage provides Prometheus and OpenTelemetry hooks, and
// the wmbridge subpackage feeds watermill messages into a Router.
//
// # Thread Safety
//
// Members are immutable and safe for concurrent use. Router is safe for
// concurrent use after configuration is complete. Do not call Register or
// Add after calling Handle.
package handling
