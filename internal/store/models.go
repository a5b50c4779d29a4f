package store

import "time"

// GoogleCredential is the Google credential embedded in a user document.
// The token values never serialize to JSON, and default store reads project
// them away; loading them takes FindByIDWithTokens or the CredentialSource
// methods.
type GoogleCredential struct {
	GoogleID     string    `bson:"google_id" json:"google_id"`
	AccessToken  string    `bson:"access_token,omitempty" json:"-"`
	RefreshToken string    `bson:"refresh_token,omitempty" json:"-"`
	Expiry       time.Time `bson:"expiry,omitempty" json:"-"`
	Scopes       []string  `bson:"scopes,omitempty" json:"scopes,omitempty"`
	ConnectedAt  time.Time `bson:"connected_at,omitempty" json:"connected_at,omitempty"`
}

// User is a stored account. IDs are opaque UUID strings minted at creation.
type User struct {
	ID        string            `bson:"_id" json:"id"`
	Email     string            `bson:"email" json:"email"`
	Name      string            `bson:"name,omitempty" json:"name,omitempty"`
	Picture   string            `bson:"picture,omitempty" json:"picture,omitempty"`
	Google    *GoogleCredential `bson:"google,omitempty" json:"google,omitempty"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at" json:"updated_at"`
	LastSeen  time.Time         `bson:"last_seen,omitempty" json:"last_seen,omitempty"`
}

// Connected reports whether the account has a linked Google credential.
func (u *User) Connected() bool {
	return u != nil && u.Google != nil && u.Google.GoogleID != ""
}
