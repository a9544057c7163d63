package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is an account that can author posts, comment and follow other users
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;not null;uniqueIndex"`
	Email       string    `json:"email,omitempty" gorm:"size:254;index"`
	FirstName   string    `json:"first_name,omitempty" gorm:"size:150"`
	LastName    string    `json:"last_name,omitempty" gorm:"size:150"`
	Password    string    `json:"-"`                                   // bcrypt hash
	FirebaseUID *string   `json:"-" gorm:"size:128;uniqueIndex"`       // nil for local accounts
	CreatedAt   time.Time `json:"date_joined"`
}

// SignupRequest defines the request body (JSON or form) for creating a local account
type SignupRequest struct {
	Username  string `json:"username" form:"username" validate:"required,min=1,max=150,username"`
	Email     string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=150"`
	Password  string `json:"password" form:"password1" validate:"required,min=8"`
}

// LoginRequest defines the credentials used by both the sign-in form and the token endpoint
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	// RefreshExpiresAt bounds how long a sliding token may keep being refreshed
	RefreshExpiresAt *jwt.NumericDate `json:"refresh_exp,omitempty"`
	jwt.RegisteredClaims
}
