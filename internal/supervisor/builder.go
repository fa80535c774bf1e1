package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Builder turns a generated artifact into an executable.
type Builder interface {
	Build(ctx context.Context, artifact, binary string) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, artifact, binary string) error

func (f BuilderFunc) Build(ctx context.Context, artifact, binary string) error {
	return f(ctx, artifact, binary)
}

// GoBuilder compiles artifacts with the Go toolchain from inside ModuleDir,
// whose go.mod provides the bot dependencies.
type GoBuilder struct {
	GoBinary  string
	ModuleDir string
	Timeout   time.Duration
}

func (b GoBuilder) Build(ctx context.Context, artifact, binary string) error {
	goBin := b.GoBinary
	if goBin == "" {
		goBin = "go"
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	src, err := filepath.Abs(artifact)
	if err != nil {
		return fmt.Errorf("failed to resolve artifact path: %w", err)
	}
	out, err := filepath.Abs(binary)
	if err != nil {
		return fmt.Errorf("failed to resolve binary path: %w", err)
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, goBin, "build", "-o", out, src)
	cmd.Dir = b.ModuleDir
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("build timed out: %w", ctx.Err())
		}
		return fmt.Errorf("go build failed: %w: %s", err, strings.TrimSpace(output.String()))
	}

	return nil
}
