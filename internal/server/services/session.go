package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/logging"
	"github.com/dmitrijs2005/playlistdash/internal/server/auth"
	"github.com/dmitrijs2005/playlistdash/internal/server/config"
	"github.com/dmitrijs2005/playlistdash/internal/server/repositories/repomanager"
)

// SessionService signs registered usernames in and resolves session tokens
// back to identities.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	validity    time.Duration
	log         logging.Logger
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		validity:    cfg.SessionValidityDuration,
		log:         log.With("module", "session"),
	}
}

// Validity is how long an issued session token stays valid.
func (s *SessionService) Validity() time.Duration { return s.validity }

// Login checks that username is registered and returns a fresh session
// token for it.
func (s *SessionService) Login(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", validation("Username is required")
	}

	if _, err := s.repomanager.Users(s.db).GetByUsername(ctx, username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "login rejected", "user", username)
			return "", common.NewUserError(common.ErrUnauthorized, "That username is not registered")
		}
		return "", storeError(err)
	}

	token, err := auth.GenerateToken(username, s.jwtSecret, s.validity)
	if err != nil {
		return "", common.NewUserError(common.ErrPersistence, err.Error())
	}

	s.log.Info(ctx, "signed in", "user", username)
	return token, nil
}

// Identify returns the username a valid session token was issued for.
func (s *SessionService) Identify(token string) (string, error) {
	username, err := auth.GetUsernameFromToken(token, s.jwtSecret)
	if err != nil {
		return "", common.NewUserError(common.ErrUnauthorized, "Unauthorized")
	}
	return username, nil
}
