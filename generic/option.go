package generic

// Option holds either a value (Some) or nothing (None). Absence is a normal state, not an error.
type Option[T any] struct {
	value    T
	hasValue bool
}

// Some constructs an Option[T] that has a value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, hasValue: true}
}

// None constructs an Option[T] that does not have a value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// FromPointer gives None for a nil pointer, otherwise Some of the pointer.
func FromPointer[T any](p *T) Option[*T] {
	if p == nil {
		return None[*T]()
	}
	return Some(p)
}

// Get returns the contained value and whether there was one, in the style of a map lookup.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.hasValue
}

// IsNone returns true if this Option[T] does not have a value.
func (o Option[T]) IsNone() bool {
	return !o.hasValue
}

// IsSome returns true if this Option[T] has a value.
func (o Option[T]) IsSome() bool {
	return o.hasValue
}

// Expect returns the contained value, or panics with the supplied message if there is no value.
func (o Option[T]) Expect(msg string) T {
	if !o.hasValue {
		panic(msg)
	}
	return o.value
}

// Unwrap returns the contained value, or panics if there is no value.
func (o Option[T]) Unwrap() T {
	return o.Expect("tried to Unwrap() a None")
}

// UnwrapOr returns the contained value, or other if there is no value.
func (o Option[T]) UnwrapOr(other T) T {
	if o.hasValue {
		return o.value
	}
	return other
}

// UnwrapOrDefault returns the contained value, or the zero value of T.
func (o Option[T]) UnwrapOrDefault() T {
	var zero T
	return o.UnwrapOr(zero)
}
