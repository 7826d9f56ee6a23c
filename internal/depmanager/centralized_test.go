package depmanager

import "testing"

func TestAddListenerNotifiesImmediatelyIfNonEmpty(t *testing.T) {
	c := NewCentralizedDependencyManager()
	c.UpdateDependencies([]string{"a.jar"})

	var got []string
	c.AddListener(func(deps []string) { got = deps })

	if len(got) != 1 || got[0] != "a.jar" {
		t.Errorf("AddListener should notify immediately with the current list, got %v", got)
	}
}

func TestAddListenerSkipsNotificationWhenEmpty(t *testing.T) {
	c := NewCentralizedDependencyManager()

	called := false
	c.AddListener(func(deps []string) { called = true })

	if called {
		t.Error("AddListener must not notify a new listener when there are no dependencies yet")
	}
}

func TestUpdateDependenciesIsNoOpOnSetEquality(t *testing.T) {
	c := NewCentralizedDependencyManager()
	c.UpdateDependencies([]string{"a.jar", "b.jar"})

	calls := 0
	c.AddListener(func(deps []string) { calls++ })
	calls = 0 // discount the immediate notification from AddListener

	c.UpdateDependencies([]string{"b.jar", "a.jar"})
	if calls != 0 {
		t.Errorf("UpdateDependencies with the same set (reordered) must be a no-op, got %d notifications", calls)
	}

	c.UpdateDependencies([]string{"a.jar", "b.jar", "c.jar"})
	if calls != 1 {
		t.Errorf("UpdateDependencies with a changed set must notify once, got %d", calls)
	}
}

func TestUpdateDependenciesNotifiesAllListenersInOrder(t *testing.T) {
	c := NewCentralizedDependencyManager()

	var order []int
	c.AddListener(func(deps []string) { order = append(order, 1) })
	c.AddListener(func(deps []string) { order = append(order, 2) })
	c.AddListener(func(deps []string) { order = append(order, 3) })

	c.UpdateDependencies([]string{"a.jar"})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("notification order = %v, want [1 2 3]", order)
	}
}

func TestClearDependenciesNotifiesOnlyWhenPreviouslyNonEmpty(t *testing.T) {
	c := NewCentralizedDependencyManager()

	calls := 0
	c.AddListener(func(deps []string) { calls++ })

	c.ClearDependencies()
	if calls != 0 {
		t.Errorf("ClearDependencies on an already-empty list must be a no-op, got %d notifications", calls)
	}

	c.UpdateDependencies([]string{"a.jar"})
	calls = 0

	c.ClearDependencies()
	if calls != 1 {
		t.Fatalf("ClearDependencies must notify once after a non-empty list, got %d", calls)
	}
	if deps := c.Dependencies(); len(deps) != 0 {
		t.Errorf("Dependencies() after Clear = %v, want empty", deps)
	}
}

func TestPanickingListenerDoesNotBlockSubsequentListeners(t *testing.T) {
	c := NewCentralizedDependencyManager()

	secondCalled := false
	c.AddListener(func(deps []string) { panic("boom") })
	c.AddListener(func(deps []string) { secondCalled = true })

	c.UpdateDependencies([]string{"a.jar"})

	if !secondCalled {
		t.Error("a panicking listener must not prevent later listeners from being notified")
	}
}

func TestRemoveListenerStopsFutureNotifications(t *testing.T) {
	c := NewCentralizedDependencyManager()

	calls := 0
	id := c.AddListenerWithID(func(deps []string) { calls++ })
	c.RemoveListener(id)

	c.UpdateDependencies([]string{"a.jar"})
	if calls != 0 {
		t.Errorf("a removed listener must not be notified, got %d calls", calls)
	}
}

func TestRemoveListenerIDsSurviveEarlierRemovals(t *testing.T) {
	c := NewCentralizedDependencyManager()

	var first, second, third int
	id1 := c.AddListenerWithID(func(deps []string) { first++ })
	id2 := c.AddListenerWithID(func(deps []string) { second++ })
	id3 := c.AddListenerWithID(func(deps []string) { third++ })

	// Removing an earlier registration must not invalidate later IDs.
	c.RemoveListener(id1)
	c.RemoveListener(id3)

	c.UpdateDependencies([]string{"a.jar"})
	if first != 0 || third != 0 {
		t.Errorf("removed listeners notified: first=%d third=%d, want 0/0", first, third)
	}
	if second != 1 {
		t.Errorf("surviving listener notified %d times, want 1", second)
	}

	// Removing an already-removed ID is a no-op, not a misfire.
	c.RemoveListener(id3)
	c.RemoveListener(id2)
	c.UpdateDependencies([]string{"b.jar"})
	if second != 1 {
		t.Errorf("listener notified after removal, got %d calls", second)
	}
}
