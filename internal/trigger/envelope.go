package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eternisai/social-push/internal/dispatch"
)

// ErrInvalidEnvelope is returned for payloads that are not change events.
var ErrInvalidEnvelope = errors.New("invalid change event envelope")

// Envelope is the wire form of a change event. Producers send either the
// plain form (path, before, after) or the Firestore event form (oldValue,
// value) with typed field values.
type Envelope struct {
	ID     string         `json:"id,omitempty"`
	Path   string         `json:"path,omitempty"`
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`

	OldValue *firestoreDocument `json:"oldValue,omitempty"`
	Value    *firestoreDocument `json:"value,omitempty"`
}

type firestoreDocument struct {
	Name       string                    `json:"name"`
	Fields     map[string]firestoreValue `json:"fields"`
	CreateTime string                    `json:"createTime,omitempty"`
	UpdateTime string                    `json:"updateTime,omitempty"`
}

type firestoreValue struct {
	StringValue    *string        `json:"stringValue,omitempty"`
	IntegerValue   *string        `json:"integerValue,omitempty"`
	DoubleValue    *float64       `json:"doubleValue,omitempty"`
	BooleanValue   *bool          `json:"booleanValue,omitempty"`
	TimestampValue *string        `json:"timestampValue,omitempty"`
	ReferenceValue *string        `json:"referenceValue,omitempty"`
	ArrayValue     *firestoreList `json:"arrayValue,omitempty"`
	MapValue       *firestoreMap  `json:"mapValue,omitempty"`
}

type firestoreList struct {
	Values []firestoreValue `json:"values"`
}

type firestoreMap struct {
	Fields map[string]firestoreValue `json:"fields"`
}

// DecodeEnvelope parses a change event from JSON.
func DecodeEnvelope(data []byte) (dispatch.ChangeEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return dispatch.ChangeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return env.ChangeEvent()
}

// ChangeEvent converts the envelope into a decider event.
func (e Envelope) ChangeEvent() (dispatch.ChangeEvent, error) {
	if e.OldValue != nil || e.Value != nil {
		return e.firestoreEvent()
	}

	path := dispatch.ParsePath(e.Path)
	if len(path) == 0 {
		return dispatch.ChangeEvent{}, fmt.Errorf("%w: missing path", ErrInvalidEnvelope)
	}
	if e.Before == nil && e.After == nil {
		return dispatch.ChangeEvent{}, fmt.Errorf("%w: neither before nor after state", ErrInvalidEnvelope)
	}

	return dispatch.ChangeEvent{
		ID:     e.ID,
		Path:   path,
		Before: e.Before,
		After:  e.After,
	}, nil
}

func (e Envelope) firestoreEvent() (dispatch.ChangeEvent, error) {
	event := dispatch.ChangeEvent{ID: e.ID}

	var name string
	if e.OldValue != nil && e.OldValue.Name != "" {
		name = e.OldValue.Name
		event.Before = decodeFields(e.OldValue.Fields)
	}
	if e.Value != nil && e.Value.Name != "" {
		name = e.Value.Name
		event.After = decodeFields(e.Value.Fields)
	}
	if name == "" {
		return dispatch.ChangeEvent{}, fmt.Errorf("%w: document name missing", ErrInvalidEnvelope)
	}

	event.Path = dispatch.ParsePath(documentPath(name))
	if len(event.Path) == 0 {
		return dispatch.ChangeEvent{}, fmt.Errorf("%w: bad document name %q", ErrInvalidEnvelope, name)
	}
	if event.ID == "" && e.Value != nil && e.Value.UpdateTime != "" {
		event.ID = event.PathString() + "@" + e.Value.UpdateTime
	}

	return event, nil
}

// documentPath strips the projects/{p}/databases/{d}/documents/ prefix.
func documentPath(name string) string {
	const marker = "/documents/"
	if i := strings.Index(name, marker); i >= 0 {
		return name[i+len(marker):]
	}
	return name
}

func decodeFields(fields map[string]firestoreValue) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v.decode()
	}
	return out
}

func (v firestoreValue) decode() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		if n, err := strconv.ParseInt(*v.IntegerValue, 10, 64); err == nil {
			return n
		}
		return *v.IntegerValue
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		if ts, err := time.Parse(time.RFC3339Nano, *v.TimestampValue); err == nil {
			return ts
		}
		return *v.TimestampValue
	case v.ReferenceValue != nil:
		return *v.ReferenceValue
	case v.ArrayValue != nil:
		items := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			items = append(items, item.decode())
		}
		return items
	case v.MapValue != nil:
		return decodeFields(v.MapValue.Fields)
	}
	// nullValue and unsupported types
	return nil
}
