//go:build linux

package backend

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// probeReflink clones a scratch file inside dir with FICLONE.
func probeReflink(dir string) error {
	src, err := os.CreateTemp(dir, ".reflink-src-*")
	if err != nil {
		return err
	}
	defer os.Remove(src.Name())
	defer src.Close()

	if _, err := src.WriteString("rewind reflink probe"); err != nil {
		return err
	}

	dst, err := os.CreateTemp(dir, ".reflink-dst-*")
	if err != nil {
		return err
	}
	defer os.Remove(dst.Name())
	defer dst.Close()

	if err := unix.IoctlFileClone(int(dst.Fd()), int(src.Fd())); err != nil {
		return fmt.Errorf("reflink not supported: %w", err)
	}
	return nil
}

// sameDevice reports an error unless a and b live on the same filesystem.
func sameDevice(a, b string) error {
	var sa, sb unix.Stat_t
	if err := unix.Stat(a, &sa); err != nil {
		return err
	}
	if err := unix.Stat(b, &sb); err != nil {
		return err
	}
	if sa.Dev != sb.Dev {
		return fmt.Errorf("%s and %s are on different devices", a, b)
	}
	return nil
}
