package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"firebase.google.com/go/v4/messaging"
	"golang.org/x/oauth2/google"
)

// GenerateDebugCurl creates a curl command that replicates the FCM request for debugging.
func GenerateDebugCurl(ctx context.Context, credJSON string, projectID string, message *messaging.Message) string {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credJSON),
		"https://www.googleapis.com/auth/firebase.messaging",
	)
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to parse credentials: %v", err)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to get OAuth token: %v", err)
	}

	payloadJSON, err := debugPayload(message)
	if err != nil {
		return fmt.Sprintf("# ERROR: Failed to marshal payload: %v", err)
	}

	return fmt.Sprintf(`curl -X POST \
  'https://fcm.googleapis.com/v1/projects/%s/messages:send' \
  -H 'Authorization: Bearer %s' \
  -H 'Content-Type: application/json' \
  -d '%s'`,
		projectID,
		token.AccessToken,
		strings.ReplaceAll(string(payloadJSON), "'", "\\'"))
}

// debugPayload renders the FCM v1 request body for message.
func debugPayload(message *messaging.Message) ([]byte, error) {
	body := map[string]interface{}{
		"token": message.Token,
		"data":  message.Data,
	}
	if message.Notification != nil {
		body["notification"] = map[string]interface{}{
			"title": message.Notification.Title,
			"body":  message.Notification.Body,
		}
	}
	if message.Android != nil && message.Android.Notification != nil {
		body["android"] = map[string]interface{}{
			"notification": map[string]interface{}{"sound": message.Android.Notification.Sound},
		}
	}
	if message.APNS != nil && message.APNS.Payload != nil && message.APNS.Payload.Aps != nil {
		body["apns"] = map[string]interface{}{
			"payload": map[string]interface{}{
				"aps": map[string]interface{}{"sound": message.APNS.Payload.Aps.Sound},
			},
		}
	}

	return json.Marshal(map[string]interface{}{"message": body})
}
