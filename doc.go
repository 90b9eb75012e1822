// Package charlcd controls an HD44780-compatible character LCD with an RGB
// backlight and push-buttons behind an MCP23017 I²C GPIO expander.
//
// This is the wiring of the Adafruit RGB LCD shield/plate family (products
// 714/716/1110): the host only needs I²C, and the expander fans out to the
// LCD control and data lines, the three LED channels of the backlight and
// five buttons.
//
// # Display Characteristics
//
// - HD44780 command set, driven through the 4-bit interface (D4..D7)
// - Write-only operation, the R/W line is held low
// - Up to 4 lines using the controller's fixed DDRAM row bases
// - Per-channel on/off RGB backlight (common anode, no dimming)
// - Backlight master switch implemented as a pin direction toggle
//
// # Hardware Connection
//
// Everything is behind the MCP23017 at address 0x20 (strap-selectable up to
// 0x27):
//
//	LCD RS      → B7
//	LCD RW      → B6
//	LCD E       → B5
//	LCD D4..D7  → B4..B1
//	RED         → A6
//	GREEN       → A7
//	BLUE        → B0
//	BACKLIGHT   → A5
//	SELECT..LEFT buttons → A0..A4 (active low, internal pull-ups)
//
// # Basic Usage
//
//	package main
//
//	import (
//		"log"
//
//		charlcd "github.com/jyap808/char-lcd-rgb-i2c"
//		"periph.io/x/conn/v3/i2c/i2creg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		if _, err := host.Init(); err != nil {
//			log.Fatal(err)
//		}
//		bus, err := i2creg.Open("")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer bus.Close()
//
//		lcd, err := charlcd.New(bus, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer lcd.Halt()
//
//		_ = lcd.SetColor(0, 100, 0)
//		_ = lcd.Message("Hello\nWorld!")
//	}
//
// # Datasheets
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/20001952C.pdf
package charlcd
