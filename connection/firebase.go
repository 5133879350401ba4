package connection

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"

	"taskplanner/config"
	"taskplanner/services"
)

func FBConnection(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, *firestore.Client, error) {
	app, err := services.InitializeFirebaseApp(ctx, cfg.CredentialsFile, cfg.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	return app, client, nil
}
