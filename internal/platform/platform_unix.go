//go:build unix

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type unixStrategy struct{}

func detect() Strategy { return unixStrategy{} }

func (unixStrategy) Name() string { return "unix" }

func (unixStrategy) FixPermissions(root string) error {
	return chmodTree(root, 0o755, 0o644)
}

func (unixStrategy) CheckAccess(path string) error {
	if err := statDir(path); err != nil {
		return err
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	return nil
}
