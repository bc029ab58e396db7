package trigger

import (
	"reflect"
	"testing"

	"cloud.google.com/go/firestore"
)

func TestRefSegments(t *testing.T) {
	room := &firestore.DocumentRef{ID: "A-B", Parent: &firestore.CollectionRef{ID: "chat_rooms"}}
	msg := &firestore.DocumentRef{ID: "m1", Parent: &firestore.CollectionRef{ID: "messages", Parent: room}}

	want := []string{"chat_rooms", "A-B", "messages", "m1"}
	if got := refSegments(msg); !reflect.DeepEqual(got, want) {
		t.Errorf("refSegments = %v, want %v", got, want)
	}
}

func TestSnapshotStateUsers(t *testing.T) {
	s := newSnapshotState(true)
	path := []string{"users", "B"}

	initial := s.apply([]docChange{{Kind: firestore.DocumentAdded, Path: path, Data: map[string]any{"friends": []any{}}, Version: "1"}})
	if len(initial) != 0 {
		t.Fatalf("initial snapshot emitted %d events, want 0", len(initial))
	}

	events := s.apply([]docChange{{Kind: firestore.DocumentModified, Path: path, Data: map[string]any{"friends": []any{"A"}}, Version: "2"}})
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	ev := events[0]
	if ev.ID != "users/B@2" || KindOf(ev) != KindUpdate {
		t.Errorf("event = %+v", ev)
	}
	if !reflect.DeepEqual(ev.Before["friends"], []any{}) || !reflect.DeepEqual(ev.After["friends"], []any{"A"}) {
		t.Errorf("before/after = %v / %v", ev.Before, ev.After)
	}

	// The cached state advances with every modification.
	events = s.apply([]docChange{{Kind: firestore.DocumentModified, Path: path, Data: map[string]any{"friends": []any{"A", "C"}}, Version: "3"}})
	if !reflect.DeepEqual(events[0].Before["friends"], []any{"A"}) {
		t.Errorf("second update before = %v", events[0].Before)
	}

	events = s.apply([]docChange{{Kind: firestore.DocumentRemoved, Path: path, Data: map[string]any{}, Version: "4"}})
	if KindOf(events[0]) != KindDelete {
		t.Errorf("removal kind = %s", KindOf(events[0]))
	}
	if _, ok := s.docs["users/B"]; ok {
		t.Error("removed document still cached")
	}
}

func TestSnapshotStateMessagesNotCached(t *testing.T) {
	s := newSnapshotState(false)
	s.apply(nil)

	events := s.apply([]docChange{{
		Kind:    firestore.DocumentAdded,
		Path:    []string{"chat_rooms", "A-B", "messages", "m2"},
		Data:    map[string]any{"senderId": "A"},
		Version: "9",
	}})

	if len(events) != 1 || KindOf(events[0]) != KindCreate {
		t.Fatalf("events = %+v, want one creation", events)
	}
	if len(s.docs) != 0 {
		t.Errorf("cached %d message documents, want 0", len(s.docs))
	}
}
