//go:build !linux

package recorder

import "fmt"

func OpenMedia(chip string, offset int, activeLow bool) (Media, error) {
	return nil, fmt.Errorf("media detect gpio not supported on this platform")
}
