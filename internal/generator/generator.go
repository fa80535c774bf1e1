// Package generator renders bot Configurations into standalone Go programs
// and manages the per-bot files derived from a config identifier.
package generator

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/text"
)

//go:embed artifact.go.tmpl
var artifactTemplate string

var tmpl = template.Must(template.New("artifact").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(artifactTemplate))

type templateData struct {
	ConfigID       int64
	BotName        string
	CredentialFile string
	Commands       []templateCommand
	Callbacks      []templateCallback
}

type templateCommand struct {
	Name     string
	Text     string
	Keyboard [][]templateButton
}

type templateButton struct {
	Text         string
	URL          string
	CallbackData string
}

type templateCallback struct {
	Data string
	Text string
}

// Generate validates cfg, renders the artifact for configID and writes it to
// outputPath atomically. A ValidationError is returned unchanged and no file
// is written.
func Generate(cfg *botspec.Configuration, outputPath string, configID int64) error {
	if err := botspec.Validate(cfg); err != nil {
		return err
	}

	src, err := Render(cfg, configID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return writeFileAtomic(outputPath, src, 0o644)
}

// Render returns the formatted artifact source for an already validated cfg.
func Render(cfg *botspec.Configuration, configID int64) ([]byte, error) {
	data := templateData{
		ConfigID:       configID,
		BotName:        strings.Join(strings.Fields(cfg.BotName), " "),
		CredentialFile: filepath.Base(Layout{}.Credentials(configID)),
	}

	for _, h := range cfg.Handlers {
		c := templateCommand{Name: h.Command, Text: text.ExpandControl(h.Text)}
		if h.ReplyMarkup != nil {
			for _, row := range h.ReplyMarkup.InlineKeyboard {
				buttons := make([]templateButton, 0, len(row))
				for _, b := range row {
					buttons = append(buttons, templateButton{Text: b.Text, URL: b.URL, CallbackData: b.CallbackData})
				}
				c.Keyboard = append(c.Keyboard, buttons)
			}
		}
		data.Commands = append(data.Commands, c)
	}

	for _, cb := range cfg.Callbacks() {
		data.Callbacks = append(data.Callbacks, templateCallback{Data: cb.Data, Text: text.ExpandControl(cb.Response)})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render artifact: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format artifact: %w", err)
	}

	return src, nil
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}

	return nil
}
