package config

// TriggersConfig switches individual entry points on or off. A nil value
// keeps the default of enabled.
type TriggersConfig struct {
	ChatMessage           *bool `yaml:"chat_message"`
	FriendRequest         *bool `yaml:"friend_request"`
	FriendRequestAccepted *bool `yaml:"friend_request_accepted"`
}

// DefaultTriggers enables every trigger.
func DefaultTriggers() TriggersConfig {
	return TriggersConfig{}
}

// Enabled reports whether the trigger with the given name should be routed.
func (t TriggersConfig) Enabled(name string) bool {
	var v *bool
	switch name {
	case "chat_message":
		v = t.ChatMessage
	case "friend_request":
		v = t.FriendRequest
	case "friend_request_accepted":
		v = t.FriendRequestAccepted
	default:
		return false
	}
	return v == nil || *v
}
