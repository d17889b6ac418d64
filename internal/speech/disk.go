package speech

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrLowDiskSpace is returned when the audio volume is too full to accept
// another synthesis run.
var ErrLowDiskSpace = errors.New("not enough free disk space")

// CheckFreeSpace verifies the filesystem holding dir has at least minFreeMB
// megabytes available. A non-positive minimum disables the check.
func CheckFreeSpace(dir string, minFreeMB int64) error {
	if minFreeMB <= 0 {
		return nil
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// Missing directory is handled later by the writer.
		return nil
	}
	freeMB := int64(stat.Bavail) * stat.Bsize / (1 << 20)
	if freeMB < minFreeMB {
		return fmt.Errorf("%w: %d MB free, %d MB required", ErrLowDiskSpace, freeMB, minFreeMB)
	}
	return nil
}
