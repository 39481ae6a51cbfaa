// Package staging owns the per-run scratch tree the pipeline works in and the
// cleanup of trees abandoned by interrupted runs.
package staging

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"cbzpress/internal/fileutil"
)

// RunPrefix prefixes every per-run scratch directory name.
const RunPrefix = "run-"

// Layout names the three stage directories beneath a scratch root.
type Layout struct {
	Root       string
	Extracted  string
	Compressed string
	Result     string
}

// NewLayout derives the stage directories for root.
func NewLayout(root string) Layout {
	return Layout{
		Root:       root,
		Extracted:  filepath.Join(root, "extracted"),
		Compressed: filepath.Join(root, "compressed"),
		Result:     filepath.Join(root, "result"),
	}
}

// RunDir returns the scratch root for the run identified by id.
func RunDir(scratchDir, id string) string {
	return filepath.Join(scratchDir, RunPrefix+id)
}

// Prepare creates the root and leaves all three stage directories empty.
func (l Layout) Prepare(fsys afero.Fs) error {
	if err := fsys.MkdirAll(l.Root, 0o755); err != nil {
		return fmt.Errorf("create scratch root: %w", err)
	}
	for _, dir := range []string{l.Extracted, l.Compressed, l.Result} {
		if err := fileutil.WipeDir(fsys, dir); err != nil {
			return err
		}
	}
	return nil
}

// Wipe removes the root and everything below it.
func (l Layout) Wipe(fsys afero.Fs) error {
	if err := fsys.RemoveAll(l.Root); err != nil {
		return fmt.Errorf("remove scratch root: %w", err)
	}
	return nil
}
