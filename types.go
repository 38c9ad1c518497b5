package handling

import "reflect"

// AnyType is the payload type that every payload satisfies. It is the
// starting point of payload narrowing when no explicit hint is given.
var AnyType = reflect.TypeFor[any]()

// TypeOf returns the reflect.Type for T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// AssignableFrom reports whether a value of type sub can be used where
// super is expected, i.e. whether super is a supertype of (or equal to)
// sub. Interfaces are supertypes of the types that implement them.
//
// A nil sub stands for an absent payload and is only assignable to
// interface types. A nil super accepts nothing.
func AssignableFrom(super, sub reflect.Type) bool {
	switch {
	case super == nil:
		return false
	case sub == nil:
		return super.Kind() == reflect.Interface
	case super == sub:
		return true
	default:
		return sub.AssignableTo(super)
	}
}

// typeName renders t for error messages.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
