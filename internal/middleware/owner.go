package middleware

import (
	"net/http"
	"strings"

	"stashbot/internal/request"
)

// OwnerIDHeader names the header that identifies the caller's stash
const OwnerIDHeader = "X-Owner-ID"

// MaxOwnerIDLength bounds owner identifiers to keep keys indexable
const MaxOwnerIDLength = 128

// Owner resolves the owner id from the request header and puts it on
// the context. Requests without one are rejected before any handler
// runs so every stash stays scoped to its owner.
func Owner() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerIDHeader))
			if owner == "" {
				http.Error(w, "Missing "+OwnerIDHeader+" header", http.StatusUnauthorized)
				return
			}
			if len(owner) > MaxOwnerIDLength {
				http.Error(w, "Owner id too long", http.StatusBadRequest)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithOwner(r.Context(), owner)))
		})
	}
}
