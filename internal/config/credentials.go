package config

import (
	"errors"
	"os"
)

// ErrMissingCredentials is returned when the Strava login is not configured.
var ErrMissingCredentials = errors.New("STRAVA_EMAIL and STRAVA_PASSWORD must be set")

// Credentials is the Strava account the bot logs in as.
type Credentials struct {
	Email    string
	Password string
}

// LoadCredentials reads the account from STRAVA_EMAIL and STRAVA_PASSWORD.
// Call LoadDotEnv first to pick up a .env file.
func LoadCredentials() (Credentials, error) {
	return CredentialsFrom(os.LookupEnv)
}

// CredentialsFrom reads the account using lookup.
func CredentialsFrom(lookup func(string) (string, bool)) (Credentials, error) {
	email, _ := lookup("STRAVA_EMAIL")
	password, _ := lookup("STRAVA_PASSWORD")
	if email == "" || password == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return Credentials{Email: email, Password: password}, nil
}
