// Package access decides whether an identity may modify data.
package access

import (
	"strings"

	"github.com/dmitrijs2005/playlistdash/internal/common"
)

// Gate holds the read-only identity set. It is immutable after NewGate and
// safe for concurrent use.
type Gate struct {
	readOnly map[string]struct{}
}

// NewGate builds a gate from identities that may read but never modify.
// Entries are compared case-insensitively; blank entries are ignored.
func NewGate(readOnlyUsers []string) *Gate {
	set := make(map[string]struct{}, len(readOnlyUsers))
	for _, u := range readOnlyUsers {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" {
			continue
		}
		set[u] = struct{}{}
	}
	return &Gate{readOnly: set}
}

func (g *Gate) IsReadOnly(identity string) bool {
	_, ok := g.readOnly[strings.ToLower(identity)]
	return ok
}

func (g *Gate) CanModify(identity string) bool {
	return !g.IsReadOnly(identity)
}

// RequireModifyPermission fails with common.ErrPermissionDenied for
// read-only identities.
func (g *Gate) RequireModifyPermission(identity string) error {
	if g.IsReadOnly(identity) {
		return common.NewUserError(common.ErrPermissionDenied, common.ReadOnlyMessage)
	}
	return nil
}
