package cache

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Key identifies one memoized invocation: the owner the call belongs to, the
// callable being invoked and the argument values.
//
// Keys are immutable once built. Two keys are equal when their callables are
// equal, their owners compare equal with == and their arguments are deeply
// equal. The hash only distributes keys across buckets; Equal is
// authoritative.
type Key struct {
	owner    any
	callable string
	args     []any
	hash     uint64
}

// NewKey builds a key. Slice and map arguments are cloned, so a caller may
// reuse its buffers afterwards; values reached through pointers are not
// cloned and must not be mutated while the key is in use.
//
// It returns ErrEmptyCallable for an empty callable and ErrInvalidOwner when
// the owner cannot be compared with ==.
func NewKey(owner any, callable string, args ...any) (Key, error) {
	if callable == "" {
		return Key{}, ErrEmptyCallable
	}
	if err := validOwner(owner); err != nil {
		return Key{}, err
	}

	var copied []any
	if len(args) > 0 {
		copied = make([]any, len(args))
		for i, a := range args {
			copied[i] = cloneArg(a)
		}
	}

	f := newFingerprinter()
	_, _ = f.d.WriteString(callable)
	ownerFingerprint(f, owner)
	f.u64(uint64(len(copied)))
	for _, a := range copied {
		f.value(reflect.ValueOf(a), 0)
	}

	return Key{
		owner:    owner,
		callable: callable,
		args:     copied,
		hash:     f.sum(),
	}, nil
}

// Owner returns the owner identity.
func (k Key) Owner() any { return k.owner }

// Callable returns the callable identity.
func (k Key) Callable() string { return k.callable }

// Args returns a copy of the argument values.
func (k Key) Args() []any {
	if len(k.args) == 0 {
		return nil
	}
	out := make([]any, len(k.args))
	copy(out, k.args)
	return out
}

// Hash returns the bucket hash.
func (k Key) Hash() uint64 { return k.hash }

// Equal reports whether k and other identify the same invocation.
func (k Key) Equal(other Key) bool {
	if k.hash != other.hash || k.callable != other.callable {
		return false
	}
	if !sameOwner(k.owner, other.owner) {
		return false
	}
	if len(k.args) != len(other.args) {
		return false
	}
	for i := range k.args {
		if !reflect.DeepEqual(k.args[i], other.args[i]) {
			return false
		}
	}
	return true
}

// IsZero reports whether k was never built by NewKey.
func (k Key) IsZero() bool { return k.callable == "" }

// String renders the key as owner#callable(args) for logs.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(ownerLabel(k.owner))
	b.WriteByte('#')
	b.WriteString(k.callable)
	b.WriteByte('(')
	for i, a := range k.args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", a)
	}
	b.WriteByte(')')
	return b.String()
}

// validOwner rejects owners whose == comparison would panic: types that are
// not comparable, and comparable structs or arrays holding an interface whose
// dynamic value is not.
func validOwner(owner any) (err error) {
	if owner == nil {
		return nil
	}
	if !reflect.TypeOf(owner).Comparable() {
		return fmt.Errorf("%w: %T", ErrInvalidOwner, owner)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %T holds an uncomparable value", ErrInvalidOwner, owner)
		}
	}()
	_ = owner == owner
	return nil
}

// sameOwner compares owners with ==. Both owners passed validOwner, so any
// interface inside them holds a comparable dynamic value; equal types then
// compare without panicking.
func sameOwner(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a == b
}

// cloneArg copies slices and maps, recursively, so the key owns their
// contents. Other values are returned as they are.
func cloneArg(a any) any {
	if a == nil {
		return nil
	}
	return cloneValue(reflect.ValueOf(a), 0).Interface()
}

func cloneValue(v reflect.Value, depth int) reflect.Value {
	if depth > maxFingerprintDepth {
		return v
	}
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		if !needsClone(v.Type().Elem()) {
			reflect.Copy(out, v)
			return out
		}
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), depth+1))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i), depth+1))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value(), depth+1))
		}
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := cloneValue(v.Elem(), depth+1)
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	}
	return v
}

func needsClone(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

func ownerLabel(owner any) string {
	switch o := owner.(type) {
	case nil:
		return "<global>"
	case reflect.Type:
		return o.String()
	}
	v := reflect.ValueOf(owner)
	if v.Kind() == reflect.Pointer {
		return fmt.Sprintf("%T@%#x", owner, v.Pointer())
	}
	return fmt.Sprintf("%T(%v)", owner, owner)
}

// TypeOwner returns the owner identity used for calls that have no receiver,
// the equivalent of a static method on T.
func TypeOwner[T any]() any {
	return reflect.TypeFor[T]()
}

// CallableOf derives a callable identity from a function value: its runtime
// name followed by its signature. It returns "" for nil or non-func values.
func CallableOf(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	name := "func"
	if rf := runtime.FuncForPC(v.Pointer()); rf != nil {
		name = rf.Name()
	}
	sig := strings.TrimPrefix(v.Type().String(), "func")
	return name + sig
}
