package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskplanner/model"
)

// ErrNoDeviceToken means the user never registered a device with the app.
var ErrNoDeviceToken = errors.New("FCM token not found for user")

func InitializeFirebaseApp(ctx context.Context, serviceAccountKeyPath, projectID string) (*firebase.App, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(serviceAccountKeyPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %w", err)
	}
	return app, nil
}

// GetFMCTokenData reads the device token the mobile app stores in
// usersLogin/{email} at sign-in.
func GetFMCTokenData(ctx context.Context, firestoreClient *firestore.Client, email string) (string, error) {
	doc, err := firestoreClient.Collection("usersLogin").Doc(email).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", ErrNoDeviceToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to get document: %w", err)
	}

	token, ok := doc.Data()["FMCToken"].(string)
	if !ok || token == "" {
		return "", ErrNoDeviceToken
	}
	return token, nil
}

// FCMPusher sends a device notification for a system notification that just
// turned unread.
type FCMPusher struct {
	firestore *firestore.Client
	messaging *messaging.Client
}

func NewFCMPusher(ctx context.Context, app *firebase.App, firestoreClient *firestore.Client) (*FCMPusher, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}
	return &FCMPusher{firestore: firestoreClient, messaging: client}, nil
}

func (p *FCMPusher) Push(ctx context.Context, user *model.User, n *model.SystemNotification) error {
	token, err := GetFMCTokenData(ctx, p.firestore, user.Email)
	if errors.Is(err, ErrNoDeviceToken) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := p.messaging.Send(ctx, pushMessage(token, n)); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

func pushMessage(token string, n *model.SystemNotification) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: map[string]string{
			"type":     "system",
			"kind":     string(n.Kind),
			"severity": string(n.Severity),
		},
	}
}
