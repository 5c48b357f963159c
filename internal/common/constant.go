// Package common contains shared constants and sentinel errors used across
// playlistdash components.
package common

import "time"

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "playlistdash_session"

// SessionDuration is how long an issued session stays valid.
const SessionDuration = 24 * time.Hour

// SignedURLValidity is the lifetime of presigned playback and cover URLs.
const SignedURLValidity = time.Hour

// MaxCoverBytes caps the size of an uploaded cover image.
const MaxCoverBytes = 5 * 1024 * 1024

// ReadOnlyMessage is returned to identities flagged as read-only.
const ReadOnlyMessage = "You do not have permission to modify data. This account is read-only."
