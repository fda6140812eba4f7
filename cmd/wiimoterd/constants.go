package main

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_ABS = 0x03

	SYN_REPORT = 0

	ABS_X        = 0x00
	ABS_Y        = 0x01
	ABS_DISTANCE = 0x19
	ABS_TILT_X   = 0x1a
	ABS_TILT_Y   = 0x1b

	// Proximity tools; a device that reports one of these is only browsing
	// while the tool is in range.
	BTN_TOOL_PEN    = 0x140
	BTN_TOOL_RUBBER = 0x141
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Watch defaults
const (
	defaultCloseOnLeave   = true
	defaultReplaceCurrent = false
	defaultDistanceBuffer = 0.03 // meters
	defaultRotationBuffer = 5.0  // degrees
	defaultLateralBuffer  = 50.0 // pixels
	defaultVerticalBuffer = 25.0 // pixels
	defaultWatchRepeatMS  = 100  // poll interval while a session is active
	defaultRotationAdjust = 50.0 // scale applied to atan2(rollY, rollX)/pi

	// Number of device slots the sample source scans, first browsing wins.
	maxSourceSlots = 4

	// A shake fires once both directions of an axis reach this count.
	shakeThreshold = 2
)

// Daemon plumbing defaults
const (
	defaultSocketPath  = "/tmp/wiimoter.sock"
	defaultServerPort  = 3002
	defaultButtonsName = "keyboard"
	eventQueueSize     = 64
	workQueueSize      = 16
)
