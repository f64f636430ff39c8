// Package input turns SDL2 events into viewer events and tracks held keys.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies an Event.
type EventType int

// Event types.
const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
)

// Event is one processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Repeat bool
	Width  int
	Height int
	MouseX int
	MouseY int
	DeltaX int // Relative motion, or wheel steps for EventMouseWheel
	DeltaY int
	Button uint8
}

// Input collects the events of a frame.
type Input struct {
	events   []Event
	buttons  uint32 // SDL button mask, updated from motion events
	keyboard []uint8
}

// New creates an input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls pending SDL events. It returns true when the window was asked to close.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			t := EventKeyDown
			if e.Type == sdl.KEYUP {
				t = EventKeyUp
			}
			i.events = append(i.events, Event{
				Type:   t,
				Key:    e.Keysym.Scancode,
				Repeat: e.Repeat != 0,
			})

		case *sdl.MouseMotionEvent:
			i.buttons = e.State
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				DeltaX: int(e.XRel),
				DeltaY: int(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			t := EventMouseDown
			if e.Type == sdl.MOUSEBUTTONUP {
				t = EventMouseUp
			}
			i.events = append(i.events, Event{
				Type:   t,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{
				Type:   EventMouseWheel,
				DeltaX: int(e.X),
				DeltaY: int(e.Y),
			})
		}
	}

	i.keyboard = sdl.GetKeyboardState()
	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed reports whether the key went down this frame, ignoring auto-repeat.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode && !e.Repeat {
			return true
		}
	}
	return false
}

// IsKeyDown reports whether the key is currently held.
func (i *Input) IsKeyDown(scancode sdl.Scancode) bool {
	return int(scancode) < len(i.keyboard) && i.keyboard[scancode] != 0
}

// Axis returns -1, 0 or 1 from a pair of held keys.
func (i *Input) Axis(negative, positive sdl.Scancode) float64 {
	v := 0.0
	if i.IsKeyDown(negative) {
		v--
	}
	if i.IsKeyDown(positive) {
		v++
	}
	return v
}

// IsButtonHeld reports whether a mouse button was held during the last motion.
func (i *Input) IsButtonHeld(button uint8) bool {
	return i.buttons&sdl.Button(uint32(button)) != 0
}
