// Package charlcd controls an HD44780-compatible character LCD with an RGB
// backlight behind an MCP23017 I²C GPIO expander.
//
// This is the wiring used by the Adafruit RGB LCD shield/plate family: the
// LCD data and control lines, the three backlight LED channels and five
// push-buttons all hang off the one expander, so the only bus connection to
// the host is I²C.
//
// See the examples for how to use this package.
package charlcd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/mcp23xxx"
)

// HD44780 commands.
const (
	lcdClearDisplay   byte = 0x01
	lcdReturnHome     byte = 0x02
	lcdEntryModeSet   byte = 0x04
	lcdDisplayControl byte = 0x08
	lcdCursorShift    byte = 0x10
	lcdFunctionSet    byte = 0x20
	lcdSetCGRAMAddr   byte = 0x40
	lcdSetDDRAMAddr   byte = 0x80
)

// Entry mode flags.
const (
	lcdEntryLeft           byte = 0x02
	lcdEntryShiftDecrement byte = 0x00
)

// Display control flags.
const (
	lcdDisplayOn byte = 0x04
	lcdCursorOn  byte = 0x02
	lcdCursorOff byte = 0x00
	lcdBlinkOn   byte = 0x01
	lcdBlinkOff  byte = 0x00
)

// Cursor/display shift flags.
const (
	lcdDisplayMove byte = 0x08
	lcdMoveRight   byte = 0x04
	lcdMoveLeft    byte = 0x00
)

// Function set flags.
const (
	lcd4BitMode byte = 0x00
	lcd1Line    byte = 0x00
	lcd2Line    byte = 0x08
	lcd5x8Dots  byte = 0x00
)

// DDRAM base address for each display row. Only the first Opts.Lines entries
// are valid for a given geometry.
var lcdRowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// MCP23017 port indexes in mcp23xxx.Dev.Pins.
const (
	portA = 0
	portB = 1
)

// Settle times required by the controller. The 100µs command settle after
// each enable pulse is the binding one: the controller needs >37µs to
// execute most commands, far longer than the pulse itself.
const (
	pulseSettle   = 1 * time.Microsecond
	commandSettle = 100 * time.Microsecond
	clearSettle   = 3 * time.Millisecond
	resetSettle   = 5 * time.Millisecond
	modeSettle    = 1 * time.Millisecond
	powerOnSettle = 50 * time.Millisecond
)

// TextDirection selects the direction characters are laid out in.
type TextDirection int

const (
	// LeftToRight lays text out from the left edge towards the right.
	LeftToRight TextDirection = iota
	// RightToLeft lays text out from the right edge towards the left.
	RightToLeft
)

// Pins is the set of expander pins the driver controls. All fields are
// mandatory. New fills it in with the fixed shield wiring; supply your own
// to NewWithPins for a different layout.
type Pins struct {
	RS gpio.PinIO // Register select: high for character data, low for commands.
	RW gpio.PinIO // Read/write select, held low. The driver never reads back.
	E  gpio.PinIO // Enable strobe.
	D4 gpio.PinIO
	D5 gpio.PinIO
	D6 gpio.PinIO
	D7 gpio.PinIO

	Red   gpio.PinIO
	Green gpio.PinIO
	Blue  gpio.PinIO

	// Backlight is switched by toggling the pin direction, not its level.
	Backlight gpio.PinIO

	Select gpio.PinIO
	Right  gpio.PinIO
	Down   gpio.PinIO
	Up     gpio.PinIO
	Left   gpio.PinIO
}

func (p *Pins) validate() error {
	for _, v := range []struct {
		name string
		pin  gpio.PinIO
	}{
		{"RS", p.RS}, {"RW", p.RW}, {"E", p.E},
		{"D4", p.D4}, {"D5", p.D5}, {"D6", p.D6}, {"D7", p.D7},
		{"Red", p.Red}, {"Green", p.Green}, {"Blue", p.Blue},
		{"Backlight", p.Backlight},
		{"Select", p.Select}, {"Right", p.Right}, {"Down", p.Down},
		{"Up", p.Up}, {"Left", p.Left},
	} {
		if v.pin == nil {
			return fmt.Errorf("charlcd: pin %s is not set", v.name)
		}
	}
	return nil
}

// Dev is a handle to an initialized display. It tracks the logical cursor
// position and mirrors of the controller configuration registers.
//
// Dev is not safe for concurrent use. Every method blocks for the sum of the
// hardware settle delays it needs and assumes exclusive ownership of the
// expander.
type Dev struct {
	pins  Pins
	cols  int
	lines int

	row    int
	column int

	displayControl  byte
	displayFunction byte
	displayMode     byte

	backlight   bool
	color       [3]uint8
	columnAlign bool
	lastMessage string
}

// New attaches an MCP23017 at the configured address on the given I²C bus
// and returns a display driver using the fixed shield wiring.
//
// Construction is total: on any bus or expander failure no Dev is returned.
// Use nil opts for the defaults (16x2 at address 0x20).
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr, err := opts.i2cAddr()
	if err != nil {
		return nil, fmt.Errorf("charlcd: %w", err)
	}
	mcp, err := mcp23xxx.NewI2C(bus, mcp23xxx.MCP23017, addr)
	if err != nil {
		return nil, fmt.Errorf("charlcd: mcp23017 at %#x: %w", addr, err)
	}
	pins, err := platePins(mcp)
	if err != nil {
		return nil, err
	}
	return NewWithPins(pins, opts)
}

// NewWithPins returns a display driver over caller-supplied expander pins.
// It configures every pin, runs the HD44780 4-bit initialization handshake
// and leaves the display cleared with all backlight channels off.
func NewWithPins(pins Pins, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("charlcd: %w", err)
	}
	if err := pins.validate(); err != nil {
		return nil, err
	}
	d := &Dev{
		pins:  pins,
		cols:  opts.Cols,
		lines: opts.Lines,
	}
	if err := d.setupPins(); err != nil {
		return nil, err
	}
	if err := d.initialize(); err != nil {
		return nil, err
	}
	log.Debugf("charlcd: initialized %dx%d display", d.cols, d.lines)
	return d, nil
}

// platePins maps the expander pins to the fixed shield wiring:
//
//	RS=B7 RW=B6 E=B5 D4=B4 D5=B3 D6=B2 D7=B1
//	RED=A6 GREEN=A7 BLUE=B0 BACKLIGHT=A5
//	SELECT=A0 RIGHT=A1 DOWN=A2 UP=A3 LEFT=A4
func platePins(mcp *mcp23xxx.Dev) (Pins, error) {
	get := func(port, number int) gpio.PinIO {
		if port >= len(mcp.Pins) || number >= len(mcp.Pins[port]) {
			return nil
		}
		p, _ := interface{}(mcp.Pins[port][number]).(gpio.PinIO)
		return p
	}
	pins := Pins{
		RS: get(portB, 7),
		RW: get(portB, 6),
		E:  get(portB, 5),
		D4: get(portB, 4),
		D5: get(portB, 3),
		D6: get(portB, 2),
		D7: get(portB, 1),

		Red:       get(portA, 6),
		Green:     get(portA, 7),
		Blue:      get(portB, 0),
		Backlight: get(portA, 5),

		Select: get(portA, 0),
		Right:  get(portA, 1),
		Down:   get(portA, 2),
		Up:     get(portA, 3),
		Left:   get(portA, 4),
	}
	if err := pins.validate(); err != nil {
		return Pins{}, err
	}
	return pins, nil
}

// setupPins drives the expander into the one pin configuration this driver
// needs: LCD control and data lines as outputs, RGB channels as outputs at
// the off level (high, common anode), buttons as pulled-up inputs.
func (d *Dev) setupPins() error {
	for _, p := range []gpio.PinIO{d.pins.RS, d.pins.E, d.pins.D4, d.pins.D5, d.pins.D6, d.pins.D7, d.pins.RW} {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("charlcd: configuring %s: %w", p, err)
		}
	}
	for _, p := range []gpio.PinIO{d.pins.Red, d.pins.Green, d.pins.Blue} {
		if err := p.Out(gpio.High); err != nil {
			return fmt.Errorf("charlcd: configuring %s: %w", p, err)
		}
	}
	for _, p := range []gpio.PinIO{d.pins.Left, d.pins.Up, d.pins.Down, d.pins.Right, d.pins.Select} {
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("charlcd: configuring %s: %w", p, err)
		}
	}
	return nil
}

// initialize runs the documented HD44780 power-on handshake that switches
// the controller into the 4-bit interface, then programs the control,
// function and entry mode registers. Sending any command through the normal
// write path before the handshake completes is undefined behavior on the
// part, so the three reset pulses and their delays are not negotiable.
func (d *Dev) initialize() error {
	time.Sleep(powerOnSettle)

	for _, p := range []gpio.PinIO{d.pins.RS, d.pins.E, d.pins.RW} {
		if err := p.Out(gpio.Low); err != nil {
			return fmt.Errorf("charlcd: init: %w", err)
		}
	}

	// Reset to the 8-bit interface three times, then drop to 4-bit. The
	// delays are the worst case power-on recovery times from the datasheet.
	if err := d.write4bits(0x03); err != nil {
		return err
	}
	time.Sleep(resetSettle)
	if err := d.write4bits(0x03); err != nil {
		return err
	}
	time.Sleep(resetSettle)
	if err := d.write4bits(0x03); err != nil {
		return err
	}
	time.Sleep(modeSettle)
	if err := d.write4bits(0x02); err != nil {
		return err
	}
	time.Sleep(modeSettle)

	d.displayControl = lcdDisplayOn | lcdCursorOff | lcdBlinkOff
	// Keeping the original register image bit for bit: both the 1-line and
	// 2-line flags are requested at once. The controller resolves the
	// conflict itself and deployed units expect this exact pattern.
	d.displayFunction = lcd4BitMode | lcd1Line | lcd2Line | lcd5x8Dots
	d.displayMode = lcdEntryLeft | lcdEntryShiftDecrement

	if err := d.writeCommand(lcdDisplayControl | d.displayControl); err != nil {
		return err
	}
	if err := d.writeCommand(lcdFunctionSet | d.displayFunction); err != nil {
		return err
	}
	if err := d.writeCommand(lcdEntryModeSet | d.displayMode); err != nil {
		return err
	}

	if err := d.Clear(); err != nil {
		return err
	}

	d.row = 0
	d.column = 0
	d.columnAlign = false
	d.lastMessage = ""

	return d.SetColor(0, 0, 0)
}

// write4bits presents the low 4 bits of value on D4..D7 and strobes the
// enable line so the controller latches them.
func (d *Dev) write4bits(value byte) error {
	for _, v := range []struct {
		pin gpio.PinIO
		on  bool
	}{
		{d.pins.D4, value&0x01 != 0},
		{d.pins.D5, value&0x02 != 0},
		{d.pins.D6, value&0x04 != 0},
		{d.pins.D7, value&0x08 != 0},
	} {
		if err := v.pin.Out(gpio.Level(v.on)); err != nil {
			return fmt.Errorf("charlcd: data line %s: %w", v.pin, err)
		}
	}
	return d.pulseEnable()
}

func (d *Dev) pulseEnable() error {
	if err := d.pins.E.Out(gpio.Low); err != nil {
		return fmt.Errorf("charlcd: enable: %w", err)
	}
	time.Sleep(pulseSettle)
	if err := d.pins.E.Out(gpio.High); err != nil {
		return fmt.Errorf("charlcd: enable: %w", err)
	}
	time.Sleep(pulseSettle)
	if err := d.pins.E.Out(gpio.Low); err != nil {
		return fmt.Errorf("charlcd: enable: %w", err)
	}
	time.Sleep(commandSettle)
	return nil
}

// write8 sends a full byte through the 4-bit interface, high nibble first.
// charMode selects the data register instead of the command register.
func (d *Dev) write8(value byte, charMode bool) error {
	if err := d.pins.RS.Out(gpio.Level(charMode)); err != nil {
		return fmt.Errorf("charlcd: register select: %w", err)
	}
	if err := d.write4bits(value >> 4); err != nil {
		return err
	}
	return d.write4bits(value & 0x0f)
}

func (d *Dev) writeCommand(value byte) error {
	return d.write8(value, false)
}

// Clear blanks the display and resets the tracked cursor to the origin.
// Clear is the slowest controller command, hence the long settle.
func (d *Dev) Clear() error {
	if err := d.writeCommand(lcdClearDisplay); err != nil {
		return err
	}
	time.Sleep(clearSettle)
	d.row = 0
	d.column = 0
	return nil
}

// Home returns the cursor to the origin and resets the tracked position.
func (d *Dev) Home() error {
	if err := d.writeCommand(lcdReturnHome); err != nil {
		return err
	}
	time.Sleep(clearSettle)
	d.row = 0
	d.column = 0
	return nil
}

// SetCursor moves the cursor to the given column and row. Rows outside the
// configured geometry are rejected without touching the hardware.
func (d *Dev) SetCursor(column, row int) error {
	if row < 0 || row >= d.lines {
		return fmt.Errorf("charlcd: row %d is invalid for a %d-line display", row, d.lines)
	}
	if err := d.writeCommand(lcdSetDDRAMAddr | (byte(column) + lcdRowOffsets[row])); err != nil {
		return err
	}
	d.row = row
	d.column = column
	return nil
}

// CursorPosition is the lenient positioning used by text layout: out of
// range coordinates are clamped to the nearest edge instead of rejected.
func (d *Dev) CursorPosition(column, row int) error {
	if row >= d.lines {
		row = d.lines - 1
	}
	if row < 0 {
		row = 0
	}
	if column >= d.cols {
		column = d.cols - 1
	}
	if column < 0 {
		column = 0
	}
	if err := d.writeCommand(lcdSetDDRAMAddr | (byte(column) + lcdRowOffsets[row])); err != nil {
		return err
	}
	d.row = row
	d.column = column
	return nil
}

// Message renders text starting at the tracked cursor row. Embedded '\n'
// characters break to the next line; the starting column of each line
// depends on the text direction and the column align setting. There is no
// wrap or overflow protection past the physical column count.
//
// After a successful render the tracked cursor resets to the origin, not to
// the end of the text.
func (d *Dev) Message(text string) error {
	d.lastMessage = text

	line := d.row
	initial := true
	for _, ch := range []byte(text) {
		if initial {
			col := d.column
			if d.displayMode&lcdEntryLeft == 0 {
				col = d.cols - 1 - d.column
			}
			if err := d.CursorPosition(col, line); err != nil {
				return err
			}
			initial = false
		}
		if ch == '\n' {
			line++
			var col int
			if d.displayMode&lcdEntryLeft != 0 {
				if d.columnAlign {
					col = d.column
				} else {
					col = 0
				}
			} else {
				if d.columnAlign {
					col = d.column
				} else {
					col = d.cols - 1
				}
			}
			if err := d.CursorPosition(col, line); err != nil {
				return err
			}
		} else if err := d.write8(ch, true); err != nil {
			return err
		}
	}

	d.column = 0
	d.row = 0
	return nil
}

// SetColor sets the backlight LED channels. The wiring only supports
// per-channel on/off: any value above 1 switches that channel on, so
// SetColor(2, 0, 2) and SetColor(100, 0, 100) are identical. The LED is
// common anode, on is a low pin level.
func (d *Dev) SetColor(r, g, b uint8) error {
	for _, v := range []struct {
		pin   gpio.PinIO
		value uint8
	}{
		{d.pins.Red, r},
		{d.pins.Green, g},
		{d.pins.Blue, b},
	} {
		level := gpio.High
		if v.value > 1 {
			level = gpio.Low
		}
		if err := v.pin.Out(level); err != nil {
			return fmt.Errorf("charlcd: led %s: %w", v.pin, err)
		}
	}
	d.color = [3]uint8{r, g, b}
	log.Debugf("charlcd: color set to %d,%d,%d", r, g, b)
	return nil
}

// SetBacklight switches the monochrome backlight. On this wiring the switch
// is the pin direction: driving the pin as an output turns the LED on,
// releasing it as an input lets the external resistor network turn it off.
// Do not replace this with a level write, it would not switch the LED.
func (d *Dev) SetBacklight(on bool) error {
	if on {
		// The latched output level is irrelevant here; low matches the
		// expander's reset default.
		if err := d.pins.Backlight.Out(gpio.Low); err != nil {
			return fmt.Errorf("charlcd: backlight: %w", err)
		}
	} else {
		if err := d.pins.Backlight.In(gpio.Float, gpio.NoEdge); err != nil {
			return fmt.Errorf("charlcd: backlight: %w", err)
		}
	}
	d.backlight = on
	log.Debugf("charlcd: backlight %t", on)
	return nil
}

// SetTextDirection sets the entry direction used by Message.
func (d *Dev) SetTextDirection(dir TextDirection) error {
	if dir == LeftToRight {
		d.displayMode |= lcdEntryLeft
	} else {
		d.displayMode &^= lcdEntryLeft
	}
	return d.writeCommand(lcdEntryModeSet | d.displayMode)
}

// SetColumnAlign controls whether Message keeps the starting column across
// embedded newlines instead of returning to the line's natural edge.
func (d *Dev) SetColumnAlign(align bool) {
	d.columnAlign = align
}

// SetDisplay turns the display output on or off without losing DDRAM
// contents.
func (d *Dev) SetDisplay(on bool) error {
	if on {
		d.displayControl |= lcdDisplayOn
	} else {
		d.displayControl &^= lcdDisplayOn
	}
	return d.writeCommand(lcdDisplayControl | d.displayControl)
}

// SetCursorVisible shows or hides the underline cursor.
func (d *Dev) SetCursorVisible(on bool) error {
	if on {
		d.displayControl |= lcdCursorOn
	} else {
		d.displayControl &^= lcdCursorOn
	}
	return d.writeCommand(lcdDisplayControl | d.displayControl)
}

// SetBlink enables or disables cursor blink.
func (d *Dev) SetBlink(on bool) error {
	if on {
		d.displayControl |= lcdBlinkOn
	} else {
		d.displayControl &^= lcdBlinkOn
	}
	return d.writeCommand(lcdDisplayControl | d.displayControl)
}

// MoveLeft shifts the entire display one position to the left.
func (d *Dev) MoveLeft() error {
	return d.writeCommand(lcdCursorShift | lcdDisplayMove | lcdMoveLeft)
}

// MoveRight shifts the entire display one position to the right.
func (d *Dev) MoveRight() error {
	return d.writeCommand(lcdCursorShift | lcdDisplayMove | lcdMoveRight)
}

// CreateChar programs one of the controller's eight custom 5x8 glyphs.
// The glyph renders as character code slot. The CGRAM write leaves the
// controller's address pointer in CGRAM, so reposition with SetCursor
// before writing more text.
func (d *Dev) CreateChar(slot uint8, pattern [8]byte) error {
	if slot > 7 {
		return fmt.Errorf("charlcd: glyph slot %d is invalid, the controller has 8", slot)
	}
	if err := d.writeCommand(lcdSetCGRAMAddr | slot<<3); err != nil {
		return err
	}
	for _, row := range pattern {
		if err := d.write8(row, true); err != nil {
			return err
		}
	}
	return nil
}

// Cols returns the configured number of columns.
func (d *Dev) Cols() int {
	return d.cols
}

// Lines returns the configured number of lines.
func (d *Dev) Lines() int {
	return d.lines
}

// Halt clears the display and turns the LEDs and backlight off.
func (d *Dev) Halt() error {
	_ = d.Clear()
	_ = d.SetColor(0, 0, 0)
	return d.SetBacklight(false)
}

// String returns a short description of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("charlcd.Dev{%dx%d}", d.cols, d.lines)
}

var _ conn.Resource = &Dev{}
