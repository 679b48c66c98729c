// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	DateOfBirth  *time.Time
	CreatedAt    time.Time
}

// Profile holds the user-editable fields.
type Profile struct {
	FullName    string
	DateOfBirth *time.Time
}
