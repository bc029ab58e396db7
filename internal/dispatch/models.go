package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Firestore layout shared by the decider and the identity directory.
const (
	UsersCollection     = "users"
	ChatRoomsCollection = "chat_rooms"
	MessagesCollection  = "messages"

	// ChatRoomKeySeparator joins the two participant ids of a chat room id.
	ChatRoomKeySeparator = "-"

	FieldSenderID               = "senderId"
	FieldText                   = "text"
	FieldDisplayName            = "displayName"
	FieldDeliveryToken          = "fcmToken"
	FieldFriendRequestsReceived = "friendRequestsReceived"
	FieldFriends                = "friends"

	defaultSound = "default"
)

var (
	// ErrMalformedEvent is returned for events whose path or fields cannot be interpreted.
	ErrMalformedEvent = errors.New("malformed change event")
	// ErrIdentityNotFound is returned by an IdentityLookup when the record does not exist.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrTokenMissing means the recipient has no delivery token.
	ErrTokenMissing = errors.New("delivery token missing")
	// ErrNoChange means the event did not add anything notifiable.
	ErrNoChange = errors.New("no notifiable change")
	// ErrDelivery wraps failures of the lookup or delivery collaborators.
	ErrDelivery = errors.New("delivery failed")
)

// Trigger names one of the decider entry points.
type Trigger string

const (
	TriggerChatMessage           Trigger = "chat_message"
	TriggerFriendRequest         Trigger = "friend_request"
	TriggerFriendRequestAccepted Trigger = "friend_request_accepted"
)

// ChangeEvent is a before/after snapshot pair for a single record mutation.
// Before is nil when the record was created, After is nil when it was deleted.
type ChangeEvent struct {
	ID     string
	Path   []string
	Before map[string]any
	After  map[string]any
}

// ParsePath splits a slash separated resource path into its segments.
func ParsePath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// PathString returns the slash separated form of the event path.
func (e ChangeEvent) PathString() string {
	return strings.Join(e.Path, "/")
}

// Identity is a user record as seen by the decider.
type Identity struct {
	ID            string
	DisplayName   string
	DeliveryToken string
}

// IntentKind tags an Intent.
type IntentKind string

const (
	IntentNone                  IntentKind = ""
	IntentChatMessage           IntentKind = "chat_message"
	IntentFriendRequestReceived IntentKind = "friend_request_received"
	IntentFriendRequestAccepted IntentKind = "friend_request_accepted"
)

// Intent is the classification of a change event. Only the fields relevant
// to Kind are set.
type Intent struct {
	Kind IntentKind

	// ChatMessage
	ChatRoomID string
	Text       string

	// SenderID is the chat sender, the friend requestor, or the acceptor.
	SenderID string
	// RecipientID is the user who should receive the notification.
	RecipientID string
	// SenderName is known up front only for accepted requests.
	SenderName string
	// RecipientToken is known up front only for received requests.
	RecipientToken string

	// Ignored counts additional new ids that were not processed.
	Ignored int
}

// PayloadType is the data.type value sent with a notification.
type PayloadType string

const (
	PayloadChat                  PayloadType = "chat"
	PayloadFriendRequest         PayloadType = "friend_request"
	PayloadFriendRequestAccepted PayloadType = "friend_request_accepted"
)

// Payload is a single push notification.
type Payload struct {
	Title string
	Body  string
	Sound string
	Type  PayloadType
	Data  map[string]string
}

// OutcomeStatus is the final state of an entry point invocation.
type OutcomeStatus string

const (
	OutcomeSent               OutcomeStatus = "sent"
	OutcomeSkippedNoRecipient OutcomeStatus = "skipped_no_recipient"
	OutcomeSkippedNoToken     OutcomeStatus = "skipped_no_token"
	OutcomeSkippedNoChange    OutcomeStatus = "skipped_no_change"
	OutcomeSkippedMalformed   OutcomeStatus = "skipped_malformed_event"
	OutcomeDeliveryFailed     OutcomeStatus = "delivery_failed"
	outcomePending            OutcomeStatus = ""
)

// Outcome describes what happened to one change event. Besides sent,
// delivery_failed and the three skips for a missing recipient, a missing
// token or no change, an entry point reports skipped_malformed_event when
// the event path, the new state or a required field cannot be interpreted,
// or when Handle is given an unknown trigger.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

// Pending reports whether the decision is ready for delivery.
func (o Outcome) Pending() bool {
	return o.Status == outcomePending
}

// Skipped reports whether the event was intentionally not delivered.
func (o Outcome) Skipped() bool {
	switch o.Status {
	case OutcomeSkippedNoRecipient, OutcomeSkippedNoToken, OutcomeSkippedNoChange, OutcomeSkippedMalformed:
		return true
	}
	return false
}

// Err maps the outcome back onto the error taxonomy. Sent yields nil.
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeSkippedNoRecipient:
		return ErrIdentityNotFound
	case OutcomeSkippedNoToken:
		return ErrTokenMissing
	case OutcomeSkippedNoChange:
		return ErrNoChange
	case OutcomeSkippedMalformed:
		return ErrMalformedEvent
	case OutcomeDeliveryFailed:
		return ErrDelivery
	}
	return nil
}

func skip(status OutcomeStatus, reason string) Outcome {
	return Outcome{Status: status, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Status: OutcomeDeliveryFailed, Reason: err.Error()}
}

// IdentityLookup resolves user identities. Implementations return an error
// wrapping ErrIdentityNotFound when the record does not exist.
type IdentityLookup interface {
	GetIdentity(ctx context.Context, id string) (*Identity, error)
}

// Notifier delivers a payload to a single device token.
type Notifier interface {
	Send(ctx context.Context, token string, payload Payload) error
}

// Logger records the outcome of every invocation. *slog.Logger satisfies it.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}
