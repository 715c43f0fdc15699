// Package rom reads program images from disk.
package rom

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sqweek/dialog"
)

var (
	ErrEmpty     = errors.New("rom is empty")
	ErrCancelled = errors.New("no rom selected")
)

// Load reads the whole ROM file at path.
func Load(path string) ([]byte, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load file %q: %w", path, err)
	}

	if len(bs) == 0 {
		return nil, fmt.Errorf("unable to load file %q: %w", path, ErrEmpty)
	}

	slog.Debug("rom loaded", "path", path, "n", len(bs))
	return bs, nil
}

// Pick asks the user for a ROM file with the desktop file chooser.
func Pick() (string, error) {
	path, err := dialog.File().
		Title("Open CHIP-8 ROM").
		Filter("CHIP-8 ROM", "ch8", "c8").
		Filter("All files", "*").
		Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("unable to open file dialog: %w", err)
	}

	return path, nil
}
