package dispatch

import (
	"context"
	"fmt"
)

// ClassifyFriendRequest looks for a newly received friend request on a
// users/{userId} update. Only the first new requestor is used; further
// simultaneous additions are counted in Intent.Ignored.
func ClassifyFriendRequest(event ChangeEvent) (Intent, Outcome) {
	userID, outcome := userUpdate(event)
	if !outcome.Pending() {
		return Intent{}, outcome
	}

	added, grew := addedIDs(
		stringList(event.Before, FieldFriendRequestsReceived),
		stringList(event.After, FieldFriendRequestsReceived),
	)
	if !grew || len(added) == 0 {
		return Intent{}, skip(OutcomeSkippedNoChange, "no new friend request")
	}

	return Intent{
		Kind:           IntentFriendRequestReceived,
		SenderID:       added[0],
		RecipientID:    userID,
		RecipientToken: stringField(event.After, FieldDeliveryToken),
		Ignored:        len(added) - 1,
	}, Outcome{}
}

// ClassifyFriendRequestAccepted looks for a newly confirmed friend on a
// users/{userId} update. The changed user is the acceptor and the new
// friend is the original requestor, who receives the notification.
func ClassifyFriendRequestAccepted(event ChangeEvent) (Intent, Outcome) {
	userID, outcome := userUpdate(event)
	if !outcome.Pending() {
		return Intent{}, outcome
	}

	added, grew := addedIDs(
		stringList(event.Before, FieldFriends),
		stringList(event.After, FieldFriends),
	)
	if !grew || len(added) == 0 {
		return Intent{}, skip(OutcomeSkippedNoChange, "no new friend")
	}

	return Intent{
		Kind:        IntentFriendRequestAccepted,
		SenderID:    userID,
		SenderName:  stringField(event.After, FieldDisplayName),
		RecipientID: added[0],
		Ignored:     len(added) - 1,
	}, Outcome{}
}

// userUpdate validates a users/{userId} event. Creations and deletions carry
// no before/after pair to compare and are treated as no change.
func userUpdate(event ChangeEvent) (string, Outcome) {
	if len(event.Path) != 2 || event.Path[0] != UsersCollection || event.Path[1] == "" {
		return "", malformed("unexpected user path %q", event.PathString())
	}
	if event.Before == nil || event.After == nil {
		return event.Path[1], skip(OutcomeSkippedNoChange, "not an update")
	}
	return event.Path[1], Outcome{}
}

// DecideFriendRequest resolves the requestor and targets the changed user's own token.
func (d *Decider) DecideFriendRequest(ctx context.Context, event ChangeEvent) Decision {
	intent, outcome := ClassifyFriendRequest(event)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}

	requestor, outcome := d.resolve(ctx, intent.SenderID)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}
	intent.SenderName = requestor.DisplayName

	if intent.RecipientToken == "" {
		return Decision{Intent: intent, Outcome: skip(OutcomeSkippedNoToken, fmt.Sprintf("user %s has no delivery token", intent.RecipientID))}
	}

	return Decision{
		Intent: intent,
		Token:  intent.RecipientToken,
		Payload: Payload{
			Title: "New Friend Request",
			Body:  requestor.DisplayName + " sent you a friend request.",
			Sound: defaultSound,
			Type:  PayloadFriendRequest,
			Data: map[string]string{
				"senderId": intent.SenderID,
			},
		},
	}
}

// DecideFriendRequestAccepted resolves the original requestor's token.
func (d *Decider) DecideFriendRequestAccepted(ctx context.Context, event ChangeEvent) Decision {
	intent, outcome := ClassifyFriendRequestAccepted(event)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}

	requestor, outcome := d.resolve(ctx, intent.RecipientID)
	if !outcome.Pending() {
		return Decision{Intent: intent, Outcome: outcome}
	}
	if requestor.DeliveryToken == "" {
		return Decision{Intent: intent, Outcome: skip(OutcomeSkippedNoToken, fmt.Sprintf("user %s has no delivery token", intent.RecipientID))}
	}
	intent.RecipientToken = requestor.DeliveryToken

	return Decision{
		Intent: intent,
		Token:  requestor.DeliveryToken,
		Payload: Payload{
			Title: "Friend Request Accepted",
			Body:  intent.SenderName + " accepted your friend request.",
			Sound: defaultSound,
			Type:  PayloadFriendRequestAccepted,
			Data: map[string]string{
				"accepterId": intent.SenderID,
			},
		},
	}
}
