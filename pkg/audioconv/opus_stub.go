//go:build !opus

package audioconv

import (
	"fmt"
	"io"
)

func decodeOpus(io.ReadSeeker) ([]float32, int, error) {
	return nil, 0, fmt.Errorf("%w: opus (build with -tags opus)", ErrUnsupported)
}
