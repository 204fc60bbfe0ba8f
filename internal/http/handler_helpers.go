package http

import (
	"net/http"
	"strings"
)

func serviceUnavailable(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).fail(r.Context(), w, http.StatusInternalServerError, "", nil)
}

// pathID returns the {id} segment captured by the router.
func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
