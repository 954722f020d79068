package feed

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// CredentialsFromEnv reads broker API keys from the environment, loading a
// local .env file first if one exists.
func CredentialsFromEnv() (Credentials, error) {
	_ = godotenv.Load() // best-effort
	key := os.Getenv("APCA_API_KEY_ID")
	secret := os.Getenv("APCA_API_SECRET_KEY")
	if key == "" || secret == "" {
		return Credentials{}, errors.New("APCA_API_KEY_ID / APCA_API_SECRET_KEY not set")
	}
	return Credentials{Key: key, Secret: secret}, nil
}
