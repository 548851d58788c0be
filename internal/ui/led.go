package ui

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Hue cycle timing of the status LED
const (
	// HueCycle is how long one full hue rotation takes
	HueCycle = 5 * time.Second
	// LEDRefresh is how often the swatch is recomputed
	LEDRefresh = 50 * time.Millisecond
)

// HSVToRGB converts hue, saturation and value in [0,1] to 8-bit RGB.
// Hue wraps, so 1.25 is the same as 0.25.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	i := math.Floor(h * 6)
	f := h*6 - i
	v *= 255

	p := uint8(v * (1 - s))
	q := uint8(v * (1 - f*s))
	t := uint8(v * (1 - (1-f)*s))
	vv := uint8(v)

	switch int(i) % 6 {
	case 0:
		return vv, t, p
	case 1:
		return q, vv, p
	case 2:
		return p, vv, t
	case 3:
		return p, q, vv
	case 4:
		return t, p, vv
	default:
		return vv, p, q
	}
}

// LEDRGB returns the LED colour elapsed into the cycle. The hue turns once
// every five seconds while the brightness pulses between 0 and 1.
func LEDRGB(elapsed time.Duration) (r, g, b uint8) {
	ms := float64(elapsed.Milliseconds())
	hue := ms / float64(HueCycle.Milliseconds())
	value := 0.5 + math.Sin(ms/100/math.Pi)*0.5
	return HSVToRGB(hue, 1, value)
}

// LEDColor returns the LED colour as a lipgloss colour
func LEDColor(elapsed time.Duration) lipgloss.Color {
	r, g, b := LEDRGB(elapsed)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r, g, b))
}

// RenderLED renders the LED swatch
func RenderLED(elapsed time.Duration) string {
	return lipgloss.NewStyle().
		Foreground(LEDColor(elapsed)).
		Render(LEDMarker + LEDMarker)
}
