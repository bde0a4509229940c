//go:build linux

package gpio

import (
	"github.com/warthog618/go-gpiocdev"
)

// cdevChip adapts a Linux GPIO character device.
type cdevChip struct {
	chip *gpiocdev.Chip
}

// OpenCdevChip opens a GPIO character device such as "gpiochip0".
func OpenCdevChip(name string) (Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &cdevChip{chip: chip}, nil
}

func (c *cdevChip) Name() string {
	return c.chip.Name
}

func (c *cdevChip) Lines() int {
	return c.chip.Lines()
}

func (c *cdevChip) LineInUse(offset int) (bool, error) {
	info, err := c.chip.LineInfo(offset)
	if err != nil {
		return false, err
	}
	return info.Used, nil
}

func (c *cdevChip) RequestOutput(offset int, initial int, consumer string) (Driver, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(initial), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (c *cdevChip) Close() error {
	return c.chip.Close()
}
