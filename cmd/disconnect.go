package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dayboardhq/dayboard/internal/google"
	"github.com/dayboardhq/dayboard/internal/store"
)

func newDisconnectCmd() *cobra.Command {
	var (
		userID        string
		googleID      string
		mongoURI      string
		mongoDatabase string
		revoke        bool
	)

	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Remove a user's stored Google credential",
		Long: `Remove the Google credential stored for a single user.

This is the operator-side counterpart of the in-app disconnect button,
for support cases where the user cannot reach the dashboard (lost
account access, offboarding, a leaked token). The user record and
their todos are kept; only the Google link is dropped, and the user
can reconnect at any time.

With --revoke the stored token is also revoked at Google, which kills
the grant immediately instead of letting it age out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			if !cmd.Flags().Changed("mongo-uri") {
				if v := os.Getenv("MONGODB_URI"); v != "" {
					mongoURI = v
				}
			}
			if !cmd.Flags().Changed("mongo-database") {
				if v := os.Getenv("MONGODB_DATABASE"); v != "" {
					mongoDatabase = v
				}
			}

			if (userID == "") == (googleID == "") {
				return fmt.Errorf("exactly one of --user-id or --google-id is required")
			}

			return runDisconnect(userID, googleID, mongoURI, mongoDatabase, revoke)
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Dashboard user ID to disconnect")
	cmd.Flags().StringVar(&googleID, "google-id", "", "Google account ID to disconnect, for when only the Google side is known")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string. Can also use MONGODB_URI env var.")
	cmd.Flags().StringVar(&mongoDatabase, "mongo-database", "dayboard", "MongoDB database name. Can also use MONGODB_DATABASE env var.")
	cmd.Flags().BoolVar(&revoke, "revoke", false, "Also revoke the token at Google")

	return cmd
}

func runDisconnect(userID, googleID, mongoURI, mongoDatabase string, revoke bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	users := store.NewUserStore(mongoClient.Database(mongoDatabase), nil)

	if userID == "" {
		user, err := users.FindByGoogleID(ctx, googleID)
		if err != nil {
			return fmt.Errorf("failed to resolve user by google id: %w", err)
		}
		userID = user.ID
	}

	user, err := users.FindByIDWithTokens(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.Connected() {
		fmt.Printf("User %s has no Google credential; nothing to do\n", userID)
		return nil
	}

	if revoke {
		token := user.Google.RefreshToken
		if token == "" {
			token = user.Google.AccessToken
		}
		if token == "" {
			fmt.Println("No token stored; skipping Google-side revocation")
		} else if err := google.RevokeToken(ctx, nil, token); err != nil {
			// The stored credential is removed regardless: a failed remote
			// revocation must not keep the token in our database.
			fmt.Fprintf(os.Stderr, "Warning: Google-side revocation failed: %v\n", err)
		} else {
			fmt.Println("Token revoked at Google")
		}
	}

	if err := users.RemoveCredential(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}

	fmt.Printf("Google credential removed for user %s (%s)\n", userID, user.Email)
	return nil
}
