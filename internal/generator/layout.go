package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Layout derives the per-bot file paths inside an output directory.
type Layout struct {
	Dir string
}

func (l Layout) path(configID int64, ext string) string {
	return filepath.Join(l.Dir, fmt.Sprintf("bot_%d%s", configID, ext))
}

// Artifact is the generated source file.
func (l Layout) Artifact(configID int64) string { return l.path(configID, ".go") }

// Credentials is the env file holding BOT_TOKEN.
func (l Layout) Credentials(configID int64) string { return l.path(configID, ".env") }

// Binary is the compiled artifact.
func (l Layout) Binary(configID int64) string { return l.path(configID, "") }

// Log receives the output of the running bot.
func (l Layout) Log(configID int64) string { return l.path(configID, ".log") }

// RemoveArtifacts deletes every file generated for configID. Missing files are ignored.
func (l Layout) RemoveArtifacts(configID int64) error {
	var errs []error
	for _, p := range []string{l.Artifact(configID), l.Credentials(configID), l.Binary(configID), l.Log(configID)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Credentials is the content of a bot's env file.
type Credentials struct {
	Token string
	// ServerURL points the bot at a custom Bot API server. Empty means the public API.
	ServerURL string
}

// WriteCredentials writes the env file read by the artifact at startup.
// The file is only readable by its owner.
func WriteCredentials(path string, creds Credentials) error {
	env := map[string]string{"BOT_TOKEN": creds.Token}
	if creds.ServerURL != "" {
		env["BOT_SERVER_URL"] = creds.ServerURL
	}

	content, err := godotenv.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	return writeFileAtomic(path, []byte(content+"\n"), 0o600)
}

// ReadCredentials returns the credentials stored at path.
func ReadCredentials(path string) (Credentials, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	return Credentials{Token: env["BOT_TOKEN"], ServerURL: env["BOT_SERVER_URL"]}, nil
}
