package auth

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"net/http"

	"github.com/sergiuosvat/x402-facilitator/utils"
)

// Authenticator validates the API key of inbound requests. Exactly one of
// the two sources may be configured: a static key compared in constant time,
// or a database of issued keys. With neither configured every request is
// allowed through.
//
// The key database is reached through the "postgres" driver, which the
// importing binary registers.
type Authenticator struct {
	StaticKey   string
	DatabaseURL string
}

// New builds an authenticator from its configuration.
func New(staticKey, databaseURL string) (*Authenticator, error) {
	if staticKey != "" && databaseURL != "" {
		return nil, errors.New("both static API key and database URL are set")
	}
	return &Authenticator{StaticKey: staticKey, DatabaseURL: databaseURL}, nil
}

// Authenticate checks the request's X-API-Key header against the configured
// key source.
func (a *Authenticator) Authenticate(r *http.Request) error {

	// Get the API key from the request header.
	providedKey := r.Header.Get("X-API-Key")

	// Check against the static key when one is configured.
	if a.StaticKey != "" {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.StaticKey)) != 1 {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}
		return nil
	}

	// Check against the key database when one is configured.
	if a.DatabaseURL != "" {

		if providedKey == "" {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}

		db, err := sql.Open("postgres", a.DatabaseURL)
		if err != nil {
			return utils.NewStatusError(
				errors.New("failed to connect to database"),
				http.StatusInternalServerError,
			)
		}
		defer db.Close()

		var apiKey string
		err = db.QueryRowContext(
			r.Context(),
			"SELECT api_key FROM users WHERE api_key = $1",
			providedKey,
		).Scan(&apiKey)

		if errors.Is(err, sql.ErrNoRows) {
			return utils.NewStatusError(
				errors.New("unauthorized"),
				http.StatusUnauthorized,
			)
		}
		if err != nil {
			return utils.NewStatusError(
				errors.New("failed to get key from database"),
				http.StatusInternalServerError,
			)
		}
	}

	return nil
}
