package request

import (
	"net/http"
	"strings"
)

// BearerToken достает access-токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return "", false
	}

	return token, true
}
