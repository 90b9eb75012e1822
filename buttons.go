package charlcd

import "periph.io/x/conn/v3/gpio"

// Button identifies one of the five push-buttons on the plate.
type Button int

const (
	ButtonSelect Button = iota
	ButtonRight
	ButtonDown
	ButtonUp
	ButtonLeft
)

func (b Button) String() string {
	switch b {
	case ButtonSelect:
		return "Select"
	case ButtonRight:
		return "Right"
	case ButtonDown:
		return "Down"
	case ButtonUp:
		return "Up"
	case ButtonLeft:
		return "Left"
	default:
		return "Unknown"
	}
}

// Pressed reports whether a button is currently held down. The buttons
// short their pulled-up input pins to ground, so pressed reads as low.
//
// The driver never polls the buttons itself; sampling cadence and
// debouncing are the caller's concern.
func (d *Dev) Pressed(b Button) bool {
	var p gpio.PinIO
	switch b {
	case ButtonSelect:
		p = d.pins.Select
	case ButtonRight:
		p = d.pins.Right
	case ButtonDown:
		p = d.pins.Down
	case ButtonUp:
		p = d.pins.Up
	case ButtonLeft:
		p = d.pins.Left
	default:
		return false
	}
	return p.Read() == gpio.Low
}
