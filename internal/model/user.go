package model

import "time"

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       *string   `json:"username"`
	FullName       *string   `json:"fullName"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"isActive"`
	IsVerified     bool      `json:"isVerified"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
