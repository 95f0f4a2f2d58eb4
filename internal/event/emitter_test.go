package event

import "testing"

func TestEmitterDeliversInOrder(t *testing.T) {
	var e Emitter[int]
	var got []string

	e.Subscribe(func(v int) { got = append(got, "a") })
	e.Subscribe(func(v int) { got = append(got, "b") })
	e.Emit(1)

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestEmitterUnsubscribe(t *testing.T) {
	var e Emitter[string]
	var a, b int

	unsubA := e.Subscribe(func(string) { a++ })
	e.Subscribe(func(string) { b++ })

	e.Emit("x")
	unsubA()
	unsubA()
	e.Emit("y")

	if a != 1 || b != 2 {
		t.Fatalf("expected a=1 b=2, got a=%d b=%d", a, b)
	}
	if e.Len() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", e.Len())
	}
}

func TestEmitterUnsubscribeDuringEmit(t *testing.T) {
	var e Emitter[int]
	calls := 0

	var unsub func()
	unsub = e.Subscribe(func(int) {
		calls++
		unsub()
	})
	e.Emit(1)
	e.Emit(2)

	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}
