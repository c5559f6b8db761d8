package eventbus

import (
	"testing"
)

func TestPublishInvokesInRegistrationOrder(t *testing.T) {
	b := New(nil)
	var order []int

	b.On(Spawn, func(agentID string, payload *ExitPayload) { order = append(order, 1) })
	b.On(Spawn, func(agentID string, payload *ExitPayload) { order = append(order, 2) })
	b.On(Spawn, func(agentID string, payload *ExitPayload) { order = append(order, 3) })

	b.Publish(Spawn, "A1", nil)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	called := false
	unsub := b.On(Exit, func(agentID string, payload *ExitPayload) { called = true })
	unsub()

	b.Publish(Exit, "A1", &ExitPayload{ExitCode: 0})

	if called {
		t.Error("listener invoked after unsubscribe")
	}
}

func TestPanicInListenerDoesNotStopOthers(t *testing.T) {
	b := New(nil)
	secondCalled := false

	b.On(Spawn, func(agentID string, payload *ExitPayload) { panic("boom") })
	b.On(Spawn, func(agentID string, payload *ExitPayload) { secondCalled = true })

	b.Publish(Spawn, "A1", nil)

	if !secondCalled {
		t.Error("second listener was not invoked after first panicked")
	}
}

func TestTopicsAreIndependent(t *testing.T) {
	b := New(nil)
	spawnCalled := false
	exitCalled := false

	b.On(Spawn, func(agentID string, payload *ExitPayload) { spawnCalled = true })
	b.On(Exit, func(agentID string, payload *ExitPayload) { exitCalled = true })

	b.Publish(Spawn, "A1", nil)

	if !spawnCalled {
		t.Error("spawn listener was not called")
	}
	if exitCalled {
		t.Error("exit listener should not have been called")
	}
}

func TestExitPayloadDelivered(t *testing.T) {
	b := New(nil)
	var got *ExitPayload

	b.On(Exit, func(agentID string, payload *ExitPayload) { got = payload })
	b.Publish(Exit, "A1", &ExitPayload{ExitCode: 7, Signal: "SIGKILL"})

	if got == nil || got.ExitCode != 7 || got.Signal != "SIGKILL" {
		t.Errorf("got %+v, want {7 SIGKILL}", got)
	}
}

func TestUnsubscribeAllClearsEveryTopic(t *testing.T) {
	b := New(nil)
	called := false
	b.On(Spawn, func(agentID string, payload *ExitPayload) { called = true })

	b.UnsubscribeAll()
	b.Publish(Spawn, "A1", nil)

	if called {
		t.Error("listener invoked after UnsubscribeAll")
	}
}

func TestIdempotentUnsubscribe(t *testing.T) {
	b := New(nil)
	unsub := b.On(Spawn, func(agentID string, payload *ExitPayload) {})
	unsub()
	unsub() // should not panic
}
