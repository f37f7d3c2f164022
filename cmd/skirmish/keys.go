package main

import (
	"time"

	"github.com/aircraftstudio/skirmish/pkg/core"
)

// holdWindow is how long a key counts as held after its last press or
// auto-repeat. Terminals report no key releases.
const holdWindow = 350 * time.Millisecond

type control int

const (
	ctrlForward control = iota
	ctrlBack
	ctrlLeft
	ctrlRight
	ctrlFire
	numControls
)

// keyState turns key presses into a held directional pad.
type keyState struct {
	window time.Duration
	last   [numControls]time.Time
}

func newKeyState(window time.Duration) *keyState {
	return &keyState{window: window}
}

func (k *keyState) press(c control, at time.Time) {
	k.last[c] = at
	// Opposite directions cancel the older one immediately.
	switch c {
	case ctrlForward:
		k.last[ctrlBack] = time.Time{}
	case ctrlBack:
		k.last[ctrlForward] = time.Time{}
	case ctrlLeft:
		k.last[ctrlRight] = time.Time{}
	case ctrlRight:
		k.last[ctrlLeft] = time.Time{}
	}
}

func (k *keyState) held(c control, now time.Time) bool {
	t := k.last[c]
	return !t.IsZero() && now.Sub(t) < k.window
}

// input returns the controls held at now.
func (k *keyState) input(now time.Time) core.Input {
	var in core.Input
	if k.held(ctrlForward, now) {
		in.Forward++
	}
	if k.held(ctrlBack, now) {
		in.Forward--
	}
	if k.held(ctrlRight, now) {
		in.Right++
	}
	if k.held(ctrlLeft, now) {
		in.Right--
	}
	in.Fire = k.held(ctrlFire, now)
	return in
}

// reset releases every control.
func (k *keyState) reset() {
	k.last = [numControls]time.Time{}
}
