package notification

import (
	"context"
	"errors"
	"fmt"

	"lenslink/models"
	"lenslink/services/booking"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// ErrNoDeviceToken is returned when the recipient has no registered device.
var ErrNoDeviceToken = errors.New("recipient has no FCM token")

// Sender is the FCM call used by PushNotifier; *messaging.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushNotifier implements booking.Notifier with Firebase Cloud Messaging.
type PushNotifier struct {
	users   booking.UserStore
	vendors booking.VendorStore
	sender  Sender
	logger  *zap.Logger
}

func NewPushNotifier(users booking.UserStore, vendors booking.VendorStore, sender Sender, logger *zap.Logger) (*PushNotifier, error) {
	if users == nil || vendors == nil || sender == nil {
		return nil, fmt.Errorf("notification service initialization error: user store, vendor store or sender is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushNotifier{users: users, vendors: vendors, sender: sender, logger: logger}, nil
}

var _ booking.Notifier = (*PushNotifier)(nil)

// Notify looks up the recipient's FCM token and sends the rendered message.
func (n *PushNotifier) Notify(ctx context.Context, to models.Recipient, kind models.NotificationKind, data map[string]string) error {
	token, err := n.tokenFor(ctx, to)
	if err != nil {
		return err
	}

	msg := Render(kind, to, data)
	payload := make(map[string]string, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["type"] = string(kind)
	payload["role"] = string(to.Role)

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: payload,
	}
	if msg.HighPriority {
		message.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
			},
		}
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		}
	}

	response, err := n.sender.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send FCM message to %s %s: %w", to.Role, to.ID, err)
	}
	n.logger.Debug("push sent",
		zap.String("kind", string(kind)),
		zap.String("recipientId", to.ID),
		zap.String("messageId", response))
	return nil
}

func (n *PushNotifier) tokenFor(ctx context.Context, to models.Recipient) (string, error) {
	var token string
	switch to.Role {
	case models.RoleUser:
		u, err := n.users.GetUser(ctx, to.ID)
		if err != nil {
			return "", fmt.Errorf("could not find user %s: %w", to.ID, err)
		}
		token = u.FCMToken
	case models.RoleVendor:
		v, err := n.vendors.GetVendor(ctx, to.ID)
		if err != nil {
			return "", fmt.Errorf("could not find vendor %s: %w", to.ID, err)
		}
		token = v.FCMToken
	default:
		return "", fmt.Errorf("unknown recipient role %q", to.Role)
	}
	if token == "" {
		return "", fmt.Errorf("%s %s: %w", to.Role, to.ID, ErrNoDeviceToken)
	}
	return token, nil
}

// LogNotifier only records notifications. Used when FCM is not configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, to models.Recipient, kind models.NotificationKind, data map[string]string) error {
	msg := Render(kind, to, data)
	n.logger.Info(msg.Title,
		zap.String("kind", string(kind)),
		zap.String("recipientId", to.ID),
		zap.String("role", string(to.Role)),
		zap.String("body", msg.Body))
	return nil
}
