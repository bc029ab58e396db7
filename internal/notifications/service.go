package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
)

// MessageSender is the subset of *messaging.Client used by Service.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// DebugCredentials enables curl dumps of rejected messages.
type DebugCredentials struct {
	CredJSON  string
	ProjectID string
}

// Service sends push notifications via Firebase Cloud Messaging.
type Service struct {
	sender  MessageSender
	logger  *logger.Logger
	enabled bool
	debug   *DebugCredentials
}

// NewService creates a new push notification service. When enabled is false
// every Send is logged and reported as successful without contacting FCM.
func NewService(sender MessageSender, logger *logger.Logger, enabled bool) *Service {
	return &Service{
		sender:  sender,
		logger:  logger.WithComponent("push-notifications"),
		enabled: enabled,
	}
}

// WithDebugCurl makes the service log a replayable curl command for failed sends.
func (s *Service) WithDebugCurl(creds DebugCredentials) *Service {
	s.debug = &creds
	return s
}

// Send delivers payload to a single device. It makes exactly one FCM call.
func (s *Service) Send(ctx context.Context, token string, payload dispatch.Payload) error {
	log := s.logger.WithContext(ctx)

	if !s.enabled {
		log.Info("push notifications disabled, skipping",
			slog.String("token_prefix", tokenPrefix(token)),
			slog.String("notification_type", string(payload.Type)),
			slog.String("title", payload.Title))
		return nil
	}

	message := BuildMessage(token, payload)
	result := s.sendToDevice(ctx, message)
	if result.Success {
		log.Debug("sent via FCM",
			slog.String("token_prefix", result.Token),
			slog.String("response", result.Response))
		return nil
	}

	if s.debug != nil {
		log.Debug("FCM debug request",
			slog.String("curl", GenerateDebugCurl(ctx, s.debug.CredJSON, s.debug.ProjectID, message)))
	}

	return result.err
}

type sendOutcome struct {
	SendResult
	err error
}

func (s *Service) sendToDevice(ctx context.Context, message *messaging.Message) sendOutcome {
	response, err := s.sender.Send(ctx, message)
	if err != nil {
		if messaging.IsUnregistered(err) {
			s.logger.WithContext(ctx).Warn("device token is no longer registered",
				slog.String("token_prefix", tokenPrefix(message.Token)))
			err = fmt.Errorf("token unregistered: %w", err)
		}
		return sendOutcome{
			SendResult: SendResult{
				Token: tokenPrefix(message.Token),
				Error: err.Error(),
			},
			err: err,
		}
	}

	return sendOutcome{
		SendResult: SendResult{
			Token:    tokenPrefix(message.Token),
			Success:  true,
			Response: response,
		},
	}
}

// BuildMessage converts a payload into an FCM message. The data map holds
// the payload type under "type" plus every payload data field.
func BuildMessage(token string, payload dispatch.Payload) *messaging.Message {
	data := make(map[string]string, len(payload.Data)+1)
	for k, v := range payload.Data {
		data[k] = v
	}
	data[DataKeyType] = string(payload.Type)

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: data,
	}

	if payload.Sound != "" {
		message.Android = &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Sound: payload.Sound,
			},
		}
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: payload.Sound,
				},
			},
		}
	}

	return message
}
