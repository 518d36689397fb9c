package camera

// KeyTrigger turns a key's press and release events into one-shot triggers. Holding a key fires once;
// it fires again only after a release.
type KeyTrigger struct {
	held      bool
	triggered bool
}

// Event records a press or release.
func (k *KeyTrigger) Event(pressed bool) {
	if pressed && !k.held {
		k.triggered = true
	}
	k.held = pressed
}

// Fire reports whether the key was pressed since the last call, and consumes the press.
func (k *KeyTrigger) Fire() bool {
	t := k.triggered
	k.triggered = false
	return t
}

// Held reports whether the key is down.
func (k *KeyTrigger) Held() bool {
	return k.held
}
