//go:build !linux && !darwin

package skills

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

func (s *Skills) System(context.Context) (string, error) {
	return fmt.Sprintf("System: %s\nMachine: %s", runtime.GOOS, runtime.GOARCH), nil
}

func (s *Skills) Disk(context.Context) (string, error) {
	return "", errors.New("disk usage not supported on " + runtime.GOOS)
}
