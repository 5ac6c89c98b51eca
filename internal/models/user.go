// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a registered account. A user authenticates either with an
// email/password pair or through a linked Google account; at creation time at
// least one of the two must be present.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email        string        `bson:"email,omitempty" json:"email,omitempty"`
	Password     string        `bson:"password,omitempty" json:"-"`
	GoogleID     string        `bson:"googleId,omitempty" json:"-"`
	Avatar       string        `bson:"avatar" json:"avatar"`
	Name         string        `bson:"name" json:"name"`
	RefreshToken string        `bson:"refreshToken" json:"-"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the client-facing projection of a User. Password and the
// stored refresh token never leave the server.
type PublicUser struct {
	ID        bson.ObjectID `json:"_id"`
	Email     string        `json:"email,omitempty"`
	Avatar    string        `json:"avatar"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Public strips credential fields for API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// DisplayName returns the name shown next to the user's comments, falling
// back to the email address for accounts without one.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
