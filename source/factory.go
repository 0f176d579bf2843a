package source

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// FileConfig provides configuration options for creating a File source.
type FileConfig struct {
	// Path is the JSON file to read. "-" reads standard input.
	// This field is required.
	Path string
}

// Validate checks if the FileConfig is valid. The file must exist unless
// Path is "-".
func (c FileConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return errors.New("path cannot be empty")
	}
	if c.Path == "-" {
		return nil
	}
	info, err := os.Stat(c.Path)
	if err != nil {
		return errors.Wrapf(err, "items file %s", c.Path)
	}
	if info.IsDir() {
		return errors.Newf("items file %s is a directory", c.Path)
	}
	return nil
}

// NewFile creates a File source with the given configuration.
// It validates the configuration and returns an error if invalid.
//
// Example:
//
//	src, err := source.NewFile(source.FileConfig{Path: "items.json"})
//	if err != nil {
//		// handle error
//	}
//	items, err := src.Items(ctx)
func NewFile(config FileConfig) (Source, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid file config")
	}
	if config.Path == "-" {
		return JSON(os.Stdin), nil
	}
	return File(config.Path), nil
}
