// Package services contains server-side business logic: the session
// service driving the authentication lifecycle, the refresh token ledger
// and the background sweeper for expired ledger records.
package services

import "github.com/dmitrijs2005/authkeeper/internal/server/models"

// PublicUser is the identity view returned to callers. It never carries
// credential material.
type PublicUser struct {
	ID           string
	Email        string
	Role         models.Role
	FirstName    string
	LastName     string
	ProfileImage string
	IsVerified   bool
}

func newPublicUser(u *models.User) PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		Role:         u.Role,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ProfileImage: u.ProfileImage,
		IsVerified:   u.IsVerified,
	}
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by Login.
type AuthResult struct {
	User PublicUser
	TokenPair
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
