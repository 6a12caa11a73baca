package services

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// FirebaseClients bundles the Admin SDK clients the app uses
type FirebaseClients struct {
	Auth    *auth.Client
	Storage *storage.Client
}

// InitFirebase initializes the Firebase Admin SDK. bucket may be empty, in which case
// the project's default bucket is used for receipts.
func InitFirebase(ctx context.Context, credPath, bucket string) (*FirebaseClients, error) {
	var conf *firebase.Config
	if bucket != "" {
		conf = &firebase.Config{StorageBucket: bucket}
	}

	opt := option.WithCredentialsFile(credPath)
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}

	return &FirebaseClients{Auth: authClient, Storage: storageClient}, nil
}
