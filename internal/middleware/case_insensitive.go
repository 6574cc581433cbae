package middleware

import (
	"net/http"
	"strings"
)

// CaseInsensitiveRoutes lowercases the fixed words of a path so /API/Scanner/Sync
// and /api/scanner/sync hit the same route. Only the listed words are
// touched; lot codes and other path values keep their case.
// Handy for QR codes, where uppercase encodes more compactly.
func CaseInsensitiveRoutes(words ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(words))
	for _, w := range words {
		known[strings.ToLower(w)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			segs := strings.Split(r.URL.Path, "/")
			for i, s := range segs {
				if lower := strings.ToLower(s); lower != s && known[lower] {
					segs[i] = lower
				}
			}
			r.URL.Path = strings.Join(segs, "/")
			r.URL.RawPath = ""
			next.ServeHTTP(w, r)
		})
	}
}
