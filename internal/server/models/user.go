// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered identity. Login only checks that the username exists.
type User struct {
	Username  string
	CreatedAt time.Time
}
