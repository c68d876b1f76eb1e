package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// Version runs "<command> <flag>" and returns the first non-empty line of
// output. ffmpeg and tesseract both answer to -version / --version this way.
func Version(ctx context.Context, command, flag string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, command, flag).CombinedOutput() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", command, flag, err)
	}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s %s: empty output", command, flag)
}
