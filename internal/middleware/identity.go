package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/xelth-com/lotscan/internal/audit"
	"github.com/xelth-com/lotscan/internal/utils"
)

// UserCookie is written by the login service
const UserCookie = "wms_user"

// Identity resolves the acting worker from a Bearer token or the login
// cookie and puts it on the request context. Requests without either pass
// through anonymously; a bad token is treated the same as no token.
func Identity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := fromBearer(r, secret)
			if id.Username == "" {
				id = fromCookie(r)
			}
			ctx := utils.WithIdentity(r.Context(), id)
			ctx = audit.WithOrigin(ctx, audit.Origin{
				Method:    r.Method,
				Path:      r.URL.Path,
				Query:     r.URL.RawQuery,
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func fromBearer(r *http.Request, secret string) utils.Identity {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || secret == "" {
		return utils.Identity{}
	}
	claims, err := utils.ValidateToken(strings.TrimSpace(parts[1]), secret)
	if err != nil {
		return utils.Identity{}
	}
	return utils.IdentityFromClaims(claims)
}

func fromCookie(r *http.Request) utils.Identity {
	c, err := r.Cookie(UserCookie)
	if err != nil || c.Value == "" {
		return utils.Identity{}
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return utils.Identity{}
	}
	var id utils.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return utils.Identity{}
	}
	id.Username = strings.TrimSpace(id.Username)
	id.Name = strings.TrimSpace(id.Name)
	return id
}

// ClientIP prefers the first X-Forwarded-For hop
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
