package ui

import "sync"

// Widget draws itself into the overlay every frame.
type Widget interface {
	Paint(p *Painter)
}

// Overlay is the PaintSource of the application: it paints its widgets in order, each frame.
type Overlay struct {
	mu      *sync.Mutex
	painter *Painter
	widgets []Widget
}

var _ PaintSource = &Overlay{}

// NewOverlay creates an overlay painting widgets with glyphs from atlas.
func NewOverlay(atlas *Atlas, widgets ...Widget) *Overlay {
	return &Overlay{mu: &sync.Mutex{}, painter: NewPainter(atlas), widgets: widgets}
}

// Add appends a widget, drawn above the existing ones.
func (o *Overlay) Add(w Widget) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.widgets = append(o.widgets, w)
}

func (o *Overlay) Paint(width, height int) *PaintList {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.painter.Begin(width, height)
	for _, w := range o.widgets {
		w.Paint(o.painter)
	}
	return o.painter.List()
}
