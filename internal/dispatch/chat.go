package dispatch

import (
	"context"
	"fmt"
	"strings"
)

// ClassifyChatMessage extracts a chat intent from a message creation event
// at chat_rooms/{chatRoomId}/messages/{messageId}. The returned outcome is
// pending when the intent is usable.
func ClassifyChatMessage(event ChangeEvent) (Intent, Outcome) {
	if len(event.Path) != 4 || event.Path[0] != ChatRoomsCollection || event.Path[2] != MessagesCollection {
		return Intent{}, malformed("unexpected chat message path %q", event.PathString())
	}
	if event.After == nil {
		return Intent{}, malformed("chat message event has no new state")
	}

	chatRoomID := event.Path[1]
	senderID := stringField(event.After, FieldSenderID)
	if senderID == "" {
		return Intent{}, malformed("chat message has no %s", FieldSenderID)
	}

	intent := Intent{
		Kind:       IntentChatMessage,
		ChatRoomID: chatRoomID,
		SenderID:   senderID,
		Text:       stringField(event.After, FieldText),
	}

	recipientID, ok := otherParticipant(chatRoomID, senderID)
	if !ok {
		return intent, skip(OutcomeSkippedNoRecipient, fmt.Sprintf("no recipient in chat room %q for sender %s", chatRoomID, senderID))
	}
	intent.RecipientID = recipientID

	return intent, Outcome{}
}

// otherParticipant returns the single id left after removing senderID from a
// two-party composite key. Keys that do not hold exactly two distinct
// non-empty ids, or that do not contain the sender, have no recipient.
func otherParticipant(chatRoomID, senderID string) (string, bool) {
	parts := strings.Split(chatRoomID, ChatRoomKeySeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] == parts[1] {
		return "", false
	}

	switch senderID {
	case parts[0]:
		return parts[1], true
	case parts[1]:
		return parts[0], true
	}
	return "", false
}

// DecideChatMessage classifies the event and resolves sender and recipient.
func (d *Decider) DecideChatMessage(ctx context.Context, event ChangeEvent) Decision {
	intent, outcome := ClassifyChatMessage(event)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}

	sender, outcome := d.resolve(ctx, intent.SenderID)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}
	recipient, outcome := d.resolve(ctx, intent.RecipientID)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}
	intent.SenderName = sender.DisplayName

	if recipient.DeliveryToken == "" {
		return Decision{Intent: intent, Outcome: skip(OutcomeSkippedNoToken, fmt.Sprintf("user %s has no delivery token", intent.RecipientID))}
	}

	return Decision{
		Intent: intent,
		Token:  recipient.DeliveryToken,
		Payload: Payload{
			Title: "New message from " + sender.DisplayName,
			Body:  intent.Text,
			Sound: defaultSound,
			Type:  PayloadChat,
			Data: map[string]string{
				"chatRoomId": intent.ChatRoomID,
				"senderId":   intent.SenderID,
			},
		},
	}
}
