package stack

// Stack is a LIFO container. The zero value is an empty stack ready for use.
type Stack[T any] struct {
	a []T
	l int
}

// NewStack creates a new stack instance seeded with the given elements,
// the last one ending up on top.
func NewStack[T any](elm ...T) *Stack[T] {
	stack := Stack[T]{
		a: make([]T, 0, len(elm)),
		l: 0,
	}

	for _, e := range elm {
		stack.l++
		stack.a = append(stack.a, e)
	}

	return &stack
}

// Push adds an element to the top of the stack
func (s *Stack[T]) Push(elm T) {
	s.l++
	s.a = append(s.a, elm)
}

// Pop removes and returns the top element of the stack
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.l < 1 {
		return zero, false
	}

	s.l--
	elm := s.a[s.l]
	s.a[s.l] = zero
	s.a = s.a[:s.l]

	return elm, true
}

// Peek returns the top element of the stack without removing it
func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if s.l < 1 {
		return zero, false
	}

	return s.a[s.l-1], true
}

// Size returns the number of elements on the stack
func (s *Stack[T]) Size() int {
	return s.l
}

// Walk visits elements from the top of the stack down to the bottom and
// stops as soon as fn returns false.
func (s *Stack[T]) Walk(fn func(T) bool) {
	for i := s.l - 1; i >= 0; i-- {
		if !fn(s.a[i]) {
			return
		}
	}
}

// Array returns the underlying array of the stack, bottom first
func (s *Stack[T]) Array() []T {
	return s.a[:s.l]
}
