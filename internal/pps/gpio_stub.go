//go:build !linux

package pps

import (
	"fmt"
	"io"
)

func requestRisingEdge(chip string, offset int, fire func()) (io.Closer, error) {
	return nil, fmt.Errorf("pps gpio not supported on this platform")
}
