package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dayboardhq/dayboard/internal/auth"
	"github.com/dayboardhq/dayboard/internal/instrumentation"
)

const usersCollection = "users"

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// tokenlessProjection strips credential token values from default reads.
var tokenlessProjection = bson.M{
	"google.access_token":  0,
	"google.refresh_token": 0,
}

// UserStore persists accounts and their Google credentials in the users
// collection. It implements auth.CredentialSource.
type UserStore struct {
	users   *mongo.Collection
	metrics *instrumentation.Metrics
}

var _ auth.CredentialSource = (*UserStore)(nil)

// NewUserStore creates a UserStore on the given database. Expects a
// connected database; call EnsureIndexes once at startup.
func NewUserStore(db *mongo.Database, metrics *instrumentation.Metrics) *UserStore {
	return &UserStore{
		users:   db.Collection(usersCollection),
		metrics: metrics,
	}
}

// EnsureIndexes creates the indexes reads depend on. Safe to run on every
// startup; index creation is idempotent.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "google.google_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, auth.ErrCredentialNotFound) {
		status = "error"
	}
	s.metrics.RecordStoreOperation(ctx, usersCollection, operation, status, time.Since(start))
}

// CreateOrLinkInput carries what the consent callback learned about the
// account.
type CreateOrLinkInput struct {
	GoogleID     string
	Email        string
	Name         string
	Picture      string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// CreateOrLink records a completed consent. An account already linked to
// the Google subject is updated in place; anyone else gets a fresh account.
// An empty incoming refresh token never clears a stored one: Google only
// returns the refresh token on first consent or forced re-consent, and
// overwriting it with nothing would strand the account.
//
// The returned user carries no token values.
func (s *UserStore) CreateOrLink(ctx context.Context, input CreateOrLinkInput) (user *User, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "create_or_link", start, err) }()

	if input.GoogleID == "" {
		return nil, fmt.Errorf("google id is required")
	}

	now := time.Now().UTC()

	existing, err := s.findByGoogleIDWithTokens(ctx, input.GoogleID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.link(ctx, existing, input, now)
	}

	created := &User{
		ID:      uuid.NewString(),
		Email:   input.Email,
		Name:    input.Name,
		Picture: input.Picture,
		Google: &GoogleCredential{
			GoogleID:     input.GoogleID,
			AccessToken:  input.AccessToken,
			RefreshToken: input.RefreshToken,
			Expiry:       input.Expiry,
			Scopes:       input.Scopes,
			ConnectedAt:  now,
		},
		CreatedAt: now,
		UpdatedAt: now,
		LastSeen:  now,
	}

	if _, insertErr := s.users.InsertOne(ctx, created); insertErr != nil {
		if mongo.IsDuplicateKeyError(insertErr) {
			// A concurrent callback for the same subject won the insert;
			// link onto the winner.
			winner, lookupErr := s.findByGoogleIDWithTokens(ctx, input.GoogleID)
			if lookupErr != nil || winner == nil {
				return nil, fmt.Errorf("failed to create account: %w", insertErr)
			}
			return s.link(ctx, winner, input, now)
		}
		return nil, fmt.Errorf("failed to create account: %w", insertErr)
	}

	return s.FindByID(ctx, created.ID)
}

// link refreshes the profile and credential of an already-linked account.
func (s *UserStore) link(ctx context.Context, existing *User, input CreateOrLinkInput, now time.Time) (*User, error) {
	refreshToken := input.RefreshToken
	if refreshToken == "" && existing.Google != nil {
		refreshToken = existing.Google.RefreshToken
	}

	connectedAt := now
	if existing.Google != nil && !existing.Google.ConnectedAt.IsZero() {
		connectedAt = existing.Google.ConnectedAt
	}

	update := bson.M{"$set": bson.M{
		"email":   input.Email,
		"name":    input.Name,
		"picture": input.Picture,
		"google": GoogleCredential{
			GoogleID:     input.GoogleID,
			AccessToken:  input.AccessToken,
			RefreshToken: refreshToken,
			Expiry:       input.Expiry,
			Scopes:       input.Scopes,
			ConnectedAt:  connectedAt,
		},
		"updated_at": now,
		"last_seen":  now,
	}}

	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": existing.ID}, update); err != nil {
		return nil, fmt.Errorf("failed to update linked account: %w", err)
	}

	return s.FindByID(ctx, existing.ID)
}

// FindByID returns the user without credential token values.
func (s *UserStore) FindByID(ctx context.Context, userID string) (user *User, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "find_by_id", start, err) }()

	var u User
	err = s.users.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(tokenlessProjection)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// FindByIDWithTokens returns the full user document including credential
// token values. Reserved for callers that genuinely need them, such as
// Google-side token revocation.
func (s *UserStore) FindByIDWithTokens(ctx context.Context, userID string) (user *User, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "find_by_id_with_tokens", start, err) }()

	var u User
	err = s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &u, nil
}

// FindByGoogleID returns the user linked to a Google subject, without
// credential token values.
func (s *UserStore) FindByGoogleID(ctx context.Context, googleID string) (user *User, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "find_by_google_id", start, err) }()

	var u User
	err = s.users.FindOne(ctx, bson.M{"google.google_id": googleID},
		options.FindOne().SetProjection(tokenlessProjection)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google id: %w", err)
	}
	return &u, nil
}

// findByGoogleIDWithTokens is the full-document lookup behind CreateOrLink.
// A missing account is (nil, nil), not an error.
func (s *UserStore) findByGoogleIDWithTokens(ctx context.Context, googleID string) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"google.google_id": googleID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google id: %w", err)
	}
	return &u, nil
}

// Credential implements auth.CredentialSource.
func (s *UserStore) Credential(ctx context.Context, userID string) (snapshot *auth.CredentialSnapshot, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "credential", start, err) }()

	var u User
	err = s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, auth.ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential: %w", err)
	}
	if u.Google == nil {
		return nil, auth.ErrCredentialNotFound
	}

	return &auth.CredentialSnapshot{
		UserID:       u.ID,
		AccessToken:  u.Google.AccessToken,
		RefreshToken: u.Google.RefreshToken,
		Expiry:       u.Google.Expiry,
		Scopes:       u.Google.Scopes,
	}, nil
}

// RefreshTokenOf implements auth.CredentialSource with a projection read of
// just the refresh token.
func (s *UserStore) RefreshTokenOf(ctx context.Context, userID string) (token string, err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "refresh_token_of", start, err) }()

	return s.readRefreshToken(ctx, userID)
}

func (s *UserStore) readRefreshToken(ctx context.Context, userID string) (string, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"_id": userID},
		options.FindOne().SetProjection(bson.M{"google.refresh_token": 1})).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", auth.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if u.Google == nil {
		return "", auth.ErrCredentialNotFound
	}
	return u.Google.RefreshToken, nil
}

// SaveTokens implements auth.CredentialSource. The stored refresh token is
// re-read immediately before the write when the incoming snapshot carries
// none, so a refresh response without one can never clear it. The write is
// filtered on the credential still existing: a disconnect that raced the
// refresh wins, and the save reports auth.ErrCredentialNotFound.
func (s *UserStore) SaveTokens(ctx context.Context, snapshot *auth.CredentialSnapshot) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "save_tokens", start, err) }()

	refreshToken := snapshot.RefreshToken
	if refreshToken == "" {
		stored, readErr := s.readRefreshToken(ctx, snapshot.UserID)
		if readErr != nil {
			return readErr
		}
		refreshToken = stored
	}

	set := bson.M{
		"google.access_token":  snapshot.AccessToken,
		"google.refresh_token": refreshToken,
		"google.expiry":        snapshot.Expiry,
		"updated_at":           time.Now().UTC(),
	}
	if len(snapshot.Scopes) > 0 {
		set["google.scopes"] = snapshot.Scopes
	}

	res, updateErr := s.users.UpdateOne(ctx,
		bson.M{"_id": snapshot.UserID, "google": bson.M{"$exists": true}},
		bson.M{"$set": set})
	if updateErr != nil {
		return fmt.Errorf("failed to save tokens: %w", updateErr)
	}
	if res.MatchedCount == 0 {
		return auth.ErrCredentialNotFound
	}
	return nil
}

// RemoveCredential implements auth.CredentialSource. The account itself
// survives; only the Google credential is dropped.
func (s *UserStore) RemoveCredential(ctx context.Context, userID string) (err error) {
	start := time.Now()
	defer func() { s.observe(ctx, "remove_credential", start, err) }()

	res, updateErr := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$unset": bson.M{"google": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	})
	if updateErr != nil {
		return fmt.Errorf("failed to remove credential: %w", updateErr)
	}
	if res.MatchedCount == 0 {
		return auth.ErrCredentialNotFound
	}
	return nil
}

// Touch records account activity. Callers treat failures as non-fatal.
func (s *UserStore) Touch(ctx context.Context, userID string) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_seen": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	return nil
}
