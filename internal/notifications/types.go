package notifications

// DataKeyType carries the payload type in the FCM data map.
const DataKeyType = "type"

// SendResult represents the result of sending a notification to a device.
type SendResult struct {
	Token    string
	Success  bool
	Response string
	Error    string
}

// tokenPrefix shortens a device token for logging.
func tokenPrefix(token string) string {
	return token[:min(10, len(token))] + "..."
}
