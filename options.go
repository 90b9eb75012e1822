package charlcd

import (
	"errors"
	"fmt"
)

// Opts is the configuration for the display.
type Opts struct {
	// I2CAddr is the expander address. The MCP23017 decodes 0x20..0x27
	// depending on its three address straps. Zero selects the default.
	I2CAddr uint16
	// Cols and Lines describe the panel geometry, e.g. 16x2 or 20x4.
	Cols  int
	Lines int
}

// DefaultOpts is the most common configuration: a 16x2 panel with the
// expander straps grounded.
var DefaultOpts = Opts{
	I2CAddr: 0x20,
	Cols:    16,
	Lines:   2,
}

func (o *Opts) i2cAddr() (uint16, error) {
	switch o.I2CAddr {
	case 0:
		return DefaultOpts.I2CAddr, nil
	case 0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27:
		return o.I2CAddr, nil
	default:
		return 0, fmt.Errorf("address %#x not supported by the expander", o.I2CAddr)
	}
}

func (o *Opts) validate() error {
	if o.Cols < 1 {
		return errors.New("display must have at least one column")
	}
	if o.Lines < 1 {
		return errors.New("display must have at least one line")
	}
	// The controller only has DDRAM base addresses for four rows.
	if o.Lines > len(lcdRowOffsets) {
		return fmt.Errorf("%d lines exceeds the controller maximum of %d", o.Lines, len(lcdRowOffsets))
	}
	return nil
}
