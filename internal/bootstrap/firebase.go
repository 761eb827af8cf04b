package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/campushub/backend/config"
)

// FirebaseClients bundles the handles the rest of the process needs from the
// Firebase app: one of each, constructed once at startup and passed by
// reference.
type FirebaseClients struct {
	Firestore *firestore.Client
	Bucket    *gcs.BucketHandle
	Auth      *auth.Client

	BucketName string
}

// InitFirebase initializes the Firebase Admin SDK and opens the Firestore,
// Storage, and Auth clients.
func InitFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*FirebaseClients, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to get storage bucket: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return &FirebaseClients{
		Firestore:  fs,
		Bucket:     bucket,
		Auth:       authClient,
		BucketName: cfg.StorageBucket,
	}, nil
}

// Close releases the Firestore connection.
func (f *FirebaseClients) Close() {
	if f != nil && f.Firestore != nil {
		f.Firestore.Close()
	}
}
