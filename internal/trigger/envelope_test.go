package trigger

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDecodePlainEnvelope(t *testing.T) {
	event, err := DecodeEnvelope([]byte(`{
		"id": "evt-1",
		"path": "users/B",
		"before": {"friends": []},
		"after": {"friends": ["A"], "displayName": "Bob"}
	}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if event.ID != "evt-1" {
		t.Errorf("ID = %q", event.ID)
	}
	if !reflect.DeepEqual(event.Path, []string{"users", "B"}) {
		t.Errorf("Path = %v", event.Path)
	}
	if !reflect.DeepEqual(event.After["friends"], []any{"A"}) {
		t.Errorf("After.friends = %#v", event.After["friends"])
	}
	if event.Before == nil {
		t.Error("Before should be an empty map, not nil")
	}
}

func TestDecodeFirestoreEnvelope(t *testing.T) {
	event, err := DecodeEnvelope([]byte(`{
		"oldValue": {},
		"value": {
			"name": "projects/demo/databases/(default)/documents/chat_rooms/A-B/messages/m1",
			"updateTime": "2024-05-01T10:00:00Z",
			"fields": {
				"senderId": {"stringValue": "A"},
				"text": {"stringValue": "hi"},
				"seq": {"integerValue": "42"},
				"score": {"doubleValue": 1.5},
				"read": {"booleanValue": false},
				"sentAt": {"timestampValue": "2024-05-01T10:00:00Z"},
				"deleted": {"nullValue": null},
				"tags": {"arrayValue": {"values": [{"stringValue": "x"}, {"integerValue": "7"}]}},
				"meta": {"mapValue": {"fields": {"client": {"stringValue": "ios"}}}}
			}
		}
	}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if !reflect.DeepEqual(event.Path, []string{"chat_rooms", "A-B", "messages", "m1"}) {
		t.Errorf("Path = %v", event.Path)
	}
	if event.Before != nil {
		t.Errorf("Before = %v, want nil for a creation", event.Before)
	}
	if event.ID != "chat_rooms/A-B/messages/m1@2024-05-01T10:00:00Z" {
		t.Errorf("ID = %q", event.ID)
	}

	want := map[string]any{
		"senderId": "A",
		"text":     "hi",
		"seq":      int64(42),
		"score":    1.5,
		"read":     false,
		"sentAt":   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		"deleted":  nil,
		"tags":     []any{"x", int64(7)},
		"meta":     map[string]any{"client": "ios"},
	}
	if !reflect.DeepEqual(event.After, want) {
		t.Errorf("After = %#v\nwant %#v", event.After, want)
	}
}

func TestDecodeFirestoreUpdate(t *testing.T) {
	event, err := DecodeEnvelope([]byte(`{
		"oldValue": {"name": "projects/p/databases/(default)/documents/users/B", "fields": {"friends": {"arrayValue": {}}}},
		"value": {"name": "projects/p/databases/(default)/documents/users/B", "fields": {"friends": {"arrayValue": {"values": [{"stringValue": "A"}]}}}}
	}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}

	if !reflect.DeepEqual(event.Before["friends"], []any{}) {
		t.Errorf("Before.friends = %#v", event.Before["friends"])
	}
	if !reflect.DeepEqual(event.After["friends"], []any{"A"}) {
		t.Errorf("After.friends = %#v", event.After["friends"])
	}
	if KindOf(event) != KindUpdate {
		t.Errorf("kind = %s, want update", KindOf(event))
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{"path":`},
		{name: "missing path", body: `{"after": {"a": 1}}`},
		{name: "no states", body: `{"path": "users/B"}`},
		{name: "firestore without name", body: `{"oldValue": {}, "value": {}}`},
		{name: "firestore root name", body: `{"value": {"name": "projects/p/databases/(default)/documents/"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.body))
			if !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}
}
