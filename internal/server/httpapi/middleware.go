package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/playlistdash/internal/server/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

// sessionMiddleware attaches the identity of a valid session cookie to the
// request context. Requests without one pass through anonymous; actions
// that need an identity reject them.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.TokenFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := s.sessions.Identify(token)
		if err != nil {
			s.logger.Debug(r.Context(), "session rejected", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}
