package ui

import "time"

// InfoPanelOption is a functional option for configuring an InfoPanel.
type InfoPanelOption func(*InfoPanel)

// WithOrigin places the panel's top left corner, in pixels.
func WithOrigin(x, y float32) InfoPanelOption {
	return func(ip *InfoPanel) {
		ip.origin = [2]float32{x, y}
	}
}

// WithPanelClock replaces time.Now for the tick rate measurement, for tests.
func WithPanelClock(now func() time.Time) InfoPanelOption {
	return func(ip *InfoPanel) {
		if now != nil {
			ip.now = now
		}
	}
}
