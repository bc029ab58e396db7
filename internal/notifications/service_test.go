package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/eternisai/social-push/internal/dispatch"
	"github.com/eternisai/social-push/internal/logger"
)

type fakeSender struct {
	messages []*messaging.Message
	err      error
}

func (f *fakeSender) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.messages = append(f.messages, message)
	if f.err != nil {
		return "", f.err
	}
	return "projects/demo/messages/1", nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelDebug, Format: "json", Output: &bytes.Buffer{}})
}

func chatPayload() dispatch.Payload {
	return dispatch.Payload{
		Title: "New message from Alice",
		Body:  "hey",
		Sound: "default",
		Type:  dispatch.PayloadChat,
		Data:  map[string]string{"chatRoomId": "A-B", "senderId": "A"},
	}
}

func TestBuildMessage(t *testing.T) {
	payload := chatPayload()
	msg := BuildMessage("T1", payload)

	if msg.Token != "T1" {
		t.Errorf("Token = %q", msg.Token)
	}
	if msg.Notification.Title != payload.Title || msg.Notification.Body != payload.Body {
		t.Errorf("Notification = %+v", msg.Notification)
	}
	wantData := map[string]string{"type": "chat", "chatRoomId": "A-B", "senderId": "A"}
	if !reflect.DeepEqual(msg.Data, wantData) {
		t.Errorf("Data = %v, want %v", msg.Data, wantData)
	}
	if msg.Android.Notification.Sound != "default" || msg.APNS.Payload.Aps.Sound != "default" {
		t.Error("sound not propagated to android and apns configs")
	}
	if _, ok := payload.Data["type"]; ok {
		t.Error("BuildMessage must not mutate the payload data map")
	}
}

func TestBuildMessageWithoutSound(t *testing.T) {
	payload := chatPayload()
	payload.Sound = ""

	msg := BuildMessage("T1", payload)
	if msg.Android != nil || msg.APNS != nil {
		t.Error("expected no platform configs without a sound")
	}
}

func TestServiceSend(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, testLogger(), true)

	if err := svc.Send(context.Background(), "T1", chatPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sender.messages) != 1 || sender.messages[0].Token != "T1" {
		t.Fatalf("messages = %+v, want one to T1", sender.messages)
	}
}

func TestServiceSendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("quota exceeded")}
	svc := NewService(sender, testLogger(), true)

	err := svc.Send(context.Background(), "T1", chatPayload())
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("Send error = %v, want quota exceeded", err)
	}
	if len(sender.messages) != 1 {
		t.Errorf("send attempts = %d, want 1", len(sender.messages))
	}
}

func TestServiceDisabled(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, testLogger(), false)

	if err := svc.Send(context.Background(), "T1", chatPayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sender.messages) != 0 {
		t.Errorf("disabled service called FCM %d times", len(sender.messages))
	}
}

func TestDebugPayload(t *testing.T) {
	raw, err := debugPayload(BuildMessage("T1", chatPayload()))
	if err != nil {
		t.Fatalf("debugPayload: %v", err)
	}

	var body struct {
		Message struct {
			Token        string            `json:"token"`
			Data         map[string]string `json:"data"`
			Notification struct {
				Title string `json:"title"`
			} `json:"notification"`
			Apns struct {
				Payload struct {
					Aps struct {
						Sound string `json:"sound"`
					} `json:"aps"`
				} `json:"payload"`
			} `json:"apns"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Message.Token != "T1" || body.Message.Data["type"] != "chat" {
		t.Errorf("message = %+v", body.Message)
	}
	if body.Message.Notification.Title != "New message from Alice" {
		t.Errorf("title = %q", body.Message.Notification.Title)
	}
	if body.Message.Apns.Payload.Aps.Sound != "default" {
		t.Errorf("apns sound = %q", body.Message.Apns.Payload.Aps.Sound)
	}
}

func TestGenerateDebugCurlBadCredentials(t *testing.T) {
	out := GenerateDebugCurl(context.Background(), "not json", "demo", BuildMessage("T1", chatPayload()))
	if len(out) == 0 || out[0] != '#' {
		t.Errorf("expected error comment, got %q", out)
	}
}

func TestTokenPrefix(t *testing.T) {
	if got := tokenPrefix("abc"); got != "abc..." {
		t.Errorf("tokenPrefix(short) = %q", got)
	}
	if got := tokenPrefix("0123456789abcdef"); got != "0123456789..." {
		t.Errorf("tokenPrefix(long) = %q", got)
	}
}

func TestServiceSatisfiesNotifier(t *testing.T) {
	var _ dispatch.Notifier = NewService(&fakeSender{}, testLogger(), true)
}
