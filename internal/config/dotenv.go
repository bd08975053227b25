package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvPath returns the absolute path to ~/.fwassist/.env.
func DotEnvPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".env"), nil
}

// GetConfigValue returns the effective value for key, using process
// environment variables first and falling back to ~/.fwassist/.env.
func GetConfigValue(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	p, err := DotEnvPath()
	if err != nil {
		return "", err
	}
	env, err := godotenv.Read(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("cannot read dotenv file %s: %w", p, err)
	}
	return env[key], nil
}

// EnsureDotEnvTemplate creates ~/.fwassist/.env if it does not already exist.
//
// The template contains configuration keys with empty values so users can
// fill them in when they want embeddings- or chat-powered features.
func EnsureDotEnvTemplate() error {
	p, err := DotEnvPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(p); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat dotenv file %s: %w", p, err)
	}

	body := "" +
		"FWASSIST_EMBEDDINGS_PROVIDER=openai\n" +
		"FWASSIST_EMBEDDINGS_MODEL=text-embedding-3-small\n" +
		"FWASSIST_EMBEDDINGS_API_KEY=\n" +
		"FWASSIST_EMBEDDINGS_BASE_URL=\n" +
		"FWASSIST_CHAT_API_KEY=\n"

	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		return fmt.Errorf("cannot write dotenv template %s: %w", p, err)
	}
	return nil
}
