package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Recognized credentials file keys.
const (
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyRedirectURI  = "redirect_uri"
)

var credentialEnv = map[string]string{
	KeyClientID:     "SPOTIFY_CLIENT_ID",
	KeyClientSecret: "SPOTIFY_CLIENT_SECRET",
	KeyRedirectURI:  "SPOTIFY_REDIRECT_URI",
}

// LoadDotEnv loads a .env file into the process environment when one exists.
// Variables already set are left alone.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadCredentials reads key=value credential lines from path and overlays the
// SPOTIFY_* environment variables. A missing file is not an error when the
// environment supplies the values; validation happens in [models.NewCredentials].
func LoadCredentials(path string) (map[string]string, error) {
	creds := map[string]string{}

	if path != "" {
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			for k, v := range values {
				creds[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: failed to read credentials file: %v", ErrConfiguration, err)
		}
	}

	for key, env := range credentialEnv {
		if v := os.Getenv(env); v != "" {
			creds[key] = v
		}
	}
	return creds, nil
}
