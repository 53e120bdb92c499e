package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User mirrors an auth identity in PostgreSQL. Password is only set for
// local email/password accounts.
type User struct {
	gorm.Model  `json:"-"`
	FirebaseUID string `json:"uid" gorm:"uniqueIndex"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Email       string `json:"email" gorm:"index"`
	Password    string `json:"-"`
}

// Author returns the identity snapshot stamped on posts by this user.
func (u *User) Author() Author {
	return Author{ID: u.FirebaseUID, Name: u.DisplayName, Avatar: u.PhotoURL}
}

type CreateLocalUserRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"displayName,omitempty" validate:"omitempty,min=2,max=50"`
	PhotoURL    string `json:"photoURL,omitempty" validate:"omitempty,url"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}
