package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ClientIDCookie identifies a browser across visits for preference storage.
const ClientIDCookie = "artis_client_id"

const clientIDMaxAge = 365 * 24 * time.Hour

// ClientID returns the caller's client ID from its cookie, issuing a new one
// with a Set-Cookie header when the cookie is missing or malformed. Call it
// before writing the response body.
func ClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientIDCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientIDCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientIDMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
