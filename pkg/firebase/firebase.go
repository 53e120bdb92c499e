package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and its clients
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	Firestore   *firestore.Client
}

// InitFirebase initializes the Firebase application and authentication client.
// The Firestore client is only opened when withFirestore is set.
func InitFirebase(ctx context.Context, credentialsPath, projectID string, withFirestore bool, logger zerolog.Logger) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}
	app := &App{FirebaseApp: firebaseApp, AuthClient: authClient}

	if withFirestore {
		fs, err := firebaseApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting firestore client: %w", err)
		}
		app.Firestore = fs
	}

	logger.Info().Bool("firestore", withFirestore).Msg("Firebase app initialized")
	return app, nil
}

// Close releases the Firestore client if one was opened.
func (a *App) Close() error {
	if a == nil || a.Firestore == nil {
		return nil
	}
	return a.Firestore.Close()
}
