package main

import (
	"fmt"
	"sort"
	"strings"
)

// ButtonMap maps a raw key/button code to the event fired on the watched target.
// Codes that are not in the map are ignored.
type ButtonMap map[int]string

// Button event names.
const (
	EventButtonA     = "wiiButtonA"
	EventButtonB     = "wiiButtonB"
	EventButtonC     = "wiiButtonC"
	EventButtonZ     = "wiiButtonZ"
	EventButton1     = "wiiButton1"
	EventButton2     = "wiiButton2"
	EventButtonMinus = "wiiButtonMinus"
	EventButtonPlus  = "wiiButtonPlus"
	EventDpadUp      = "wiiDpadUp"
	EventDpadDown    = "wiiDpadDown"
	EventDpadRight   = "wiiDpadRight"
	EventDpadLeft    = "wiiDpadLeft"
)

// buttonPresets are the built-in lookup tables.
//
//   - wii: key codes the Wii browser reports for the remote.
//   - keyboard: keyboard fallback used when no remote is present.
//   - hid-wiimote: Linux input key codes reported by the hid-wiimote driver.
var buttonPresets = map[string]ButtonMap{
	"wii": {
		13:  EventButtonA,
		171: EventButtonB,
		201: EventButtonC,
		200: EventButtonZ,
		172: EventButton1,
		173: EventButton2,
		170: EventButtonMinus,
		174: EventButtonPlus,
		175: EventDpadUp,
		176: EventDpadDown,
		177: EventDpadRight,
		178: EventDpadLeft,
	},
	"keyboard": {
		65:  EventButtonA,
		66:  EventButtonB,
		67:  EventButtonC,
		90:  EventButtonZ,
		49:  EventButton1,
		50:  EventButton2,
		109: EventButtonMinus,
		107: EventButtonPlus,
		38:  EventDpadUp,
		40:  EventDpadDown,
		39:  EventDpadRight,
		37:  EventDpadLeft,
	},
	"hid-wiimote": {
		0x130: EventButtonA,     // BTN_A
		0x131: EventButtonB,     // BTN_B
		0x132: EventButtonC,     // BTN_C
		0x135: EventButtonZ,     // BTN_Z
		0x101: EventButton1,     // BTN_1
		0x102: EventButton2,     // BTN_2
		0x19c: EventButtonMinus, // KEY_PREVIOUS
		0x197: EventButtonPlus,  // KEY_NEXT
		103:   EventDpadUp,      // KEY_UP
		108:   EventDpadDown,    // KEY_DOWN
		106:   EventDpadRight,   // KEY_RIGHT
		105:   EventDpadLeft,    // KEY_LEFT
	},
}

// buttonPresetNames returns the known preset names, sorted.
func buttonPresetNames() []string {
	names := make([]string, 0, len(buttonPresets))
	for name := range buttonPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// newButtonMap copies a preset and applies overrides on top of it.
// An override with an empty name removes the code from the table.
func newButtonMap(preset string, overrides map[int]string) (ButtonMap, error) {
	base, ok := buttonPresets[preset]
	if !ok {
		return nil, fmt.Errorf("unknown button preset %q (must be one of %s)", preset, strings.Join(buttonPresetNames(), ", "))
	}

	m := make(ButtonMap, len(base)+len(overrides))
	for code, name := range base {
		m[code] = name
	}
	for code, name := range overrides {
		if name == "" {
			delete(m, code)
			continue
		}
		m[code] = name
	}
	return m, nil
}

// lookup returns the event name for a code.
func (m ButtonMap) lookup(code int) (string, bool) {
	name, ok := m[code]
	return name, ok
}
