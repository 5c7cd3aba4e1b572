package event

import "testing"

func TestEventInvokeOrder(t *testing.T) {
	var e Event[int]
	var got []int

	e.AddListener(func(v int) { got = append(got, v) })
	e.AddListener(nil)
	e.AddListener(func(v int) { got = append(got, v*10) })

	if e.ListenerCount() != 2 {
		t.Errorf("Expected 2 listeners, got %d", e.ListenerCount())
	}

	e.Invoke(3)
	if len(got) != 2 || got[0] != 3 || got[1] != 30 {
		t.Errorf("Expected [3 30], got %v", got)
	}

	e.RemoveAllListeners()
	e.Invoke(4)
	if len(got) != 2 {
		t.Errorf("Listener ran after RemoveAllListeners: %v", got)
	}
}

func TestQueueDrain(t *testing.T) {
	var q Queue[string]
	q.Push("a")
	q.Push("b")

	if q.Len() != 2 {
		t.Errorf("Expected 2 queued items, got %d", q.Len())
	}

	items := q.Drain()
	if len(items) != 2 || items[0] != "a" || items[1] != "b" {
		t.Errorf("Expected [a b], got %v", items)
	}
	if q.Len() != 0 {
		t.Error("Queue not empty after Drain")
	}
	if len(q.Drain()) != 0 {
		t.Error("Second Drain returned items")
	}
}
