package fetchcache

import "github.com/goccy/go-reflect"

// ValueCloner is an interface for cloning values.
// Stores clone values on the way in and out, and PatchLocal clones before handing a value to the patch function,
// so a value already delivered to subscribers is never mutated afterwards.
type ValueCloner[V ValueConstraint] interface {
	CloneValue(V) V
}

// ValueClonerFunc is a function type that implements the ValueCloner interface.
type ValueClonerFunc[V ValueConstraint] func(v V) V

// CloneValue calls the function.
func (f ValueClonerFunc[V]) CloneValue(v V) V {
	return f(v)
}

// NopValueCloner is a value cloner that returns values as they are.
// Use it for immutable values or when callers promise not to mutate what they receive.
type NopValueCloner[V ValueConstraint] struct{}

// CloneValue returns the input value.
func (NopValueCloner[V]) CloneValue(v V) V {
	return v
}

// DefaultValueCloner returns a cloner for the given value type.
// Scalar kinds get a NopValueCloner. Types with a Clone() V or DeepCopy() V method get a cloner calling it;
// nil pointers, maps and slices are passed through without calling the method.
// Any other type panics: pass an explicit cloner for it.
func DefaultValueCloner[V ValueConstraint]() ValueCloner[V] {
	type cloner interface {
		Clone() V
	}
	type deepCopier interface {
		DeepCopy() V
	}

	var zero V
	switch any(zero).(type) {
	case cloner:
		return ValueClonerFunc[V](func(v V) V {
			if isNil(v) {
				return v
			}
			return any(v).(cloner).Clone()
		})
	case deepCopier:
		return ValueClonerFunc[V](func(v V) V {
			if isNil(v) {
				return v
			}
			return any(v).(deepCopier).DeepCopy()
		})
	}

	typ := reflect.TypeOf(zero)
	if typ == nil {
		panic("value type must not be an interface without Clone or DeepCopy method")
	}
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return NopValueCloner[V]{}
	default:
		panic("value type " + typ.String() + " does not have Clone or DeepCopy method")
	}
}

func isNil(v any) bool {
	rv := reflect.ValueNoEscapeOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
