package stack

import "testing"

func TestStackLIFO(t *testing.T) {
	s := NewStack(1, 2)
	s.Push(3)

	if s.Size() != 3 {
		t.Fatalf("expected size 3, got %d", s.Size())
	}

	for _, expected := range []int{3, 2, 1} {
		got, ok := s.Pop()
		if !ok || got != expected {
			t.Errorf("expected %d, got %d (ok=%v)", expected, got, ok)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Errorf("pop on empty stack should report false")
	}
	if _, ok := s.Peek(); ok {
		t.Errorf("peek on empty stack should report false")
	}
}

func TestStackWalkTopDown(t *testing.T) {
	var s Stack[string]
	s.Push("outer")
	s.Push("middle")
	s.Push("inner")

	var seen []string
	s.Walk(func(v string) bool {
		seen = append(seen, v)
		return v != "middle"
	})

	if len(seen) != 2 || seen[0] != "inner" || seen[1] != "middle" {
		t.Errorf("unexpected walk order: %v", seen)
	}
}
