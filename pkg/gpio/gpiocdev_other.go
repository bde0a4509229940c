//go:build !linux

package gpio

import "errors"

// OpenCdevChip always fails: GPIO character devices only exist on Linux.
func OpenCdevChip(name string) (Chip, error) {
	return nil, errors.New("gpio character devices require linux")
}
