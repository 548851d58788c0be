package ui

import (
	"testing"
	"time"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		r, g, b uint8
	}{
		{"red", 0, 1, 1, 255, 0, 0},
		{"orange", 0.125, 1, 1, 255, 191, 0},
		{"chartreuse", 0.25, 1, 1, 127, 255, 0},
		{"cyan", 0.5, 1, 1, 0, 255, 255},
		{"violet", 0.75, 1, 1, 127, 0, 255},
		{"wraps", 1, 1, 1, 255, 0, 0},
		{"white", 0.3, 0, 1, 255, 255, 255},
		{"black", 0.7, 1, 0, 0, 0, 0},
		{"half red", 0, 1, 0.5, 127, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := HSVToRGB(tt.h, tt.s, tt.v)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("HSVToRGB(%v, %v, %v) = (%d, %d, %d), want (%d, %d, %d)",
					tt.h, tt.s, tt.v, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestLEDCycle(t *testing.T) {
	// At zero the hue is red and the brightness is at its midpoint
	if got := LEDColor(0); got != "#7f0000" {
		t.Errorf("LEDColor(0) = %s, want #7f0000", got)
	}

	// The hue repeats every cycle; brightness differs, so compare hue by
	// checking which channel dominates.
	r, g, b := LEDRGB(HueCycle / 2)
	if !(b >= r && g >= r) {
		t.Errorf("LEDRGB(half cycle) = (%d, %d, %d), want a cyan hue", r, g, b)
	}
}

func TestRenderLED(t *testing.T) {
	if out := RenderLED(time.Second); out == "" {
		t.Error("RenderLED() returned empty string")
	}
}
