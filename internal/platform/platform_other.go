//go:build !unix

package platform

import (
	"fmt"
	"os"
)

type genericStrategy struct{}

func detect() Strategy { return genericStrategy{} }

func (genericStrategy) Name() string { return "generic" }

// FixPermissions only clears the read-only bit; other mode bits are not
// meaningful here.
func (genericStrategy) FixPermissions(root string) error {
	return chmodTree(root, 0o777, 0o666)
}

// CheckAccess probes writability by creating and removing a temp file.
func (genericStrategy) CheckAccess(path string) error {
	if err := statDir(path); err != nil {
		return err
	}
	probe, err := os.CreateTemp(path, ".cbzpress-probe-*")
	if err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
