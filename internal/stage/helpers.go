package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"slidesift/internal/services"
)

// RequireFile returns a services.ErrNotFound naming the stage when path is not
// an existing regular file.
func RequireFile(stageName, what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageName, "locate input", fmt.Sprintf("%s not found at %s", what, path), nil)
		}
		return services.Wrap(services.ErrValidation, stageName, "locate input", fmt.Sprintf("stat %s", what), err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, stageName, "locate input", fmt.Sprintf("%s at %s is not a file", what, path), nil)
	}
	return nil
}

// RequireDir is RequireFile for directories.
func RequireDir(stageName, what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageName, "locate input", fmt.Sprintf("%s not found at %s", what, path), nil)
		}
		return services.Wrap(services.ErrValidation, stageName, "locate input", fmt.Sprintf("stat %s", what), err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, stageName, "locate input", fmt.Sprintf("%s at %s is not a directory", what, path), nil)
	}
	return nil
}
