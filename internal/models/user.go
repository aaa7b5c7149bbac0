package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name     string `bson:"name" json:"name"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password,omitempty" json:"-"` // Don't return password in JSON

	// ProviderID is the federated identity provider uid. Unique when set.
	ProviderID string `bson:"provider_id,omitempty" json:"provider_id,omitempty"`
	// GoogleID is only present on accounts imported from the first release.
	GoogleID string `bson:"google_id,omitempty" json:"-"`

	Photo       string   `bson:"photo,omitempty" json:"photo,omitempty"`
	TeachSkills []string `bson:"teach_skills" json:"teach_skills"`
	LearnSkills []string `bson:"learn_skills" json:"learn_skills"`
	Bio         string   `bson:"bio" json:"bio"`
	Rating      float64  `bson:"rating" json:"rating"`
	Reviews     []string `bson:"reviews" json:"reviews"`
}

// ChatID is the id other users address this user by in conversations.
func (u *User) ChatID() string {
	if u.ProviderID != "" {
		return u.ProviderID
	}
	return u.ID.Hex()
}

// ProfileUpdate carries the fields of a profile upsert. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Photo       *string   `json:"photo"`
	TeachSkills *[]string `json:"teach_skills"`
	LearnSkills *[]string `json:"learn_skills"`
	Bio         *string   `json:"bio"`
	// ProviderID is only stored when the profile has none yet.
	ProviderID *string `json:"provider_id"`
}

// FederatedClaims is the identity asserted by the identity provider at login.
type FederatedClaims struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

// AuthResponse is returned by register, login and federated login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
