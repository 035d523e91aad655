//go:build linux || darwin

package skills

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

func (s *Skills) System(context.Context) (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return fmt.Sprintf("System: %s %s\nMachine: %s\nHost: %s",
		unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Release[:]),
		unix.ByteSliceToString(u.Machine[:]),
		unix.ByteSliceToString(u.Nodename[:]),
	), nil
}

func (s *Skills) Disk(context.Context) (string, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(s.diskPath, &st); err != nil {
		return "", fmt.Errorf("statfs %s: %w", s.diskPath, err)
	}
	bsize := uint64(st.Bsize)
	return diskReport(st.Blocks*bsize, st.Bavail*bsize), nil
}
