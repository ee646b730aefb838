package controllers

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

// CtxKeyPrincipal carries the acting principal through the request context.
const CtxKeyPrincipal ctxKey = "principal"

const principalHeader = "X-Principal"

// RequirePrincipal rejects requests that do not identify an acting principal.
// Authentication itself is handled upstream; this layer only trusts the
// header the gateway sets.
func RequirePrincipal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := strings.TrimSpace(r.Header.Get(principalHeader))
		if principal == "" {
			http.Error(w, "X-Principal header is required", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), CtxKeyPrincipal, principal)
		next(w, r.WithContext(ctx))
	}
}

func principalFrom(r *http.Request) string {
	if v, ok := r.Context().Value(CtxKeyPrincipal).(string); ok {
		return v
	}
	return ""
}
