package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/playlistdash/internal/common"
	"github.com/dmitrijs2005/playlistdash/internal/server/actions"
)

const msgBadRequest = "Invalid request body"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult[T any](w http.ResponseWriter, res actions.ActionResult[T], okStatus int) {
	if res.Success {
		writeJSON(w, okStatus, res)
		return
	}
	writeJSON(w, statusFor(res.Kind), res)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, actions.Void{Error: msg})
}

func statusFor(kind error) int {
	switch kind {
	case common.ErrUnauthorized:
		return http.StatusUnauthorized
	case common.ErrPermissionDenied:
		return http.StatusForbidden
	case common.ErrNotFound:
		return http.StatusNotFound
	case common.ErrDuplicateMembership:
		return http.StatusConflict
	case common.ErrValidation:
		return http.StatusBadRequest
	case common.ErrStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}
