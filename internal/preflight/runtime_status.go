package preflight

import (
	"context"

	"slidesift/internal/config"
	"slidesift/internal/deps"
)

// ToolVersion reports the version banner of an external tool.
type ToolVersion struct {
	Name    string
	Command string
	Version string
	Err     error
}

// ProbeVersions asks ffmpeg and tesseract for their version banners. Tools
// missing from PATH report an error rather than a version.
func ProbeVersions(ctx context.Context, cfg *config.Config) []ToolVersion {
	probes := []struct {
		name, command, flag string
	}{
		{"FFmpeg", cfg.FFmpegBinary(), "-version"},
		{"Tesseract", cfg.TesseractBinary(), "--version"},
	}
	versions := make([]ToolVersion, 0, len(probes))
	for _, probe := range probes {
		version, err := deps.Version(ctx, probe.command, probe.flag)
		versions = append(versions, ToolVersion{
			Name:    probe.name,
			Command: probe.command,
			Version: version,
			Err:     err,
		})
	}
	return versions
}
