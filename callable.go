package handling

import (
	"fmt"
	"reflect"
	"runtime"
)

var errorType = reflect.TypeFor[error]()

// Parameter describes one declared parameter of a Callable.
type Parameter struct {
	// Index is the 0-based position among the callable's parameters. The
	// receiver of an InstanceCall is not a parameter.
	Index int
	// Type is the declared type of the parameter.
	Type reflect.Type
}

// Callable is a unit of code a Member can invoke. The set of callables is
// closed: it is either an *InstanceCall or a *FactoryCall.
type Callable interface {
	// Name identifies the callable in errors and logs.
	Name() string

	// Params returns the declared parameters in declaration order.
	Params() []Parameter

	// String returns a readable signature.
	String() string

	sealed()
}

// results describes how to read the values returned by a callable.
type results struct {
	value bool // first result carries a value
	err   bool // last result is an error
}

func (r results) read(out []reflect.Value) (any, error) {
	if r.err {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
	}
	if r.value {
		return out[0].Interface(), nil
	}
	return nil, nil
}

func classifyResults(fn reflect.Type) (results, bool) {
	switch fn.NumOut() {
	case 0:
		return results{}, true
	case 1:
		if fn.Out(0) == errorType {
			return results{err: true}, true
		}
		return results{value: true}, true
	case 2:
		if fn.Out(1) != errorType || fn.Out(0) == errorType {
			return results{}, false
		}
		return results{value: true, err: true}, true
	default:
		return results{}, false
	}
}

func paramsOf(fn reflect.Type, skip int) []Parameter {
	params := make([]Parameter, 0, fn.NumIn()-skip)
	for i := skip; i < fn.NumIn(); i++ {
		params = append(params, Parameter{Index: i - skip, Type: fn.In(i)})
	}
	return params
}

func signature(name string, params []Parameter) string {
	s := name + "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.Type.String()
	}
	return s + ")"
}

// InstanceCall is a method invoked on a target value supplied at dispatch
// time.
type InstanceCall struct {
	receiver reflect.Type
	method   reflect.Method
	params   []Parameter
	results  results
}

// Method looks up the exported method name on receiver. Methods declared on
// a pointer receiver are only found when receiver is the pointer type.
func Method(receiver reflect.Type, name string) (*InstanceCall, error) {
	if receiver == nil {
		return nil, unsupported(name, "receiver type is nil")
	}
	full := receiver.String() + "." + name
	m, ok := receiver.MethodByName(name)
	if !ok {
		return nil, unsupported(full, "no exported method %q on %s", name, receiver)
	}
	if receiver.Kind() == reflect.Interface {
		return nil, unsupported(full, "receiver must be a concrete type, got interface %s", receiver)
	}
	if m.Type.IsVariadic() {
		return nil, unsupported(full, "variadic methods are not supported")
	}
	res, ok := classifyResults(m.Type)
	if !ok {
		return nil, unsupported(full, "unsupported result signature %s", m.Type)
	}
	return &InstanceCall{
		receiver: receiver,
		method:   m,
		params:   paramsOf(m.Type, 1),
		results:  res,
	}, nil
}

// MethodOf is Method for the receiver type T.
//
//	call, err := handling.MethodOf[*OrderHandler]("PlaceOrder")
func MethodOf[T any](name string) (*InstanceCall, error) {
	return Method(reflect.TypeFor[T](), name)
}

// Receiver returns the type the method is declared on.
func (c *InstanceCall) Receiver() reflect.Type { return c.receiver }

// Method returns the underlying reflect.Method.
func (c *InstanceCall) Method() reflect.Method { return c.method }

func (c *InstanceCall) Name() string        { return c.receiver.String() + "." + c.method.Name }
func (c *InstanceCall) Params() []Parameter { return append([]Parameter(nil), c.params...) }
func (c *InstanceCall) String() string      { return signature(c.Name(), c.params) }
func (c *InstanceCall) sealed()             {}

// bind checks that target can receive the method.
func (c *InstanceCall) bind(target any) (reflect.Value, error) {
	if target == nil {
		return reflect.Value{}, ErrNilTarget
	}
	recv := reflect.ValueOf(target)
	if !recv.Type().AssignableTo(c.receiver) {
		return reflect.Value{}, fmt.Errorf("target of type %s cannot receive %s", recv.Type(), c.Name())
	}
	if recv.Kind() == reflect.Pointer && recv.IsNil() {
		return reflect.Value{}, ErrNilTarget
	}
	return recv, nil
}

// call invokes the method on a bound receiver. Arguments must already match
// the declared parameter types; the returned error is the method's own.
func (c *InstanceCall) call(recv reflect.Value, args []reflect.Value) (any, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, recv)
	in = append(in, args...)
	return c.results.read(c.method.Func.Call(in))
}

// FactoryCall is a constructor function that builds a new object from the
// resolved arguments. The target passed at dispatch time is ignored.
type FactoryCall struct {
	fn      reflect.Value
	name    string
	params  []Parameter
	results results
}

// Factory wraps fn, which must be a non-nil function returning the
// constructed value, optionally followed by an error.
//
//	call, err := handling.Factory(NewOrder)
func Factory(fn any) (*FactoryCall, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, unsupported(fmt.Sprintf("%T", fn), "factory must be a non-nil function")
	}
	name := fmt.Sprintf("%T", fn)
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		name = f.Name()
	}
	if v.Type().IsVariadic() {
		return nil, unsupported(name, "variadic factories are not supported")
	}
	res, ok := classifyResults(v.Type())
	if !ok || !res.value {
		return nil, unsupported(name, "factory must return a value, optionally followed by an error; got %s", v.Type())
	}
	return &FactoryCall{
		fn:      v,
		name:    name,
		params:  paramsOf(v.Type(), 0),
		results: res,
	}, nil
}

// Produces returns the type of the constructed value.
func (c *FactoryCall) Produces() reflect.Type { return c.fn.Type().Out(0) }

func (c *FactoryCall) Name() string        { return c.name }
func (c *FactoryCall) Params() []Parameter { return append([]Parameter(nil), c.params...) }
func (c *FactoryCall) String() string      { return signature(c.name, c.params) }
func (c *FactoryCall) sealed()             {}

func (c *FactoryCall) call(args []reflect.Value) (any, error) {
	return c.results.read(c.fn.Call(args))
}
