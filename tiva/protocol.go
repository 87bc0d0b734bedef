package tiva

// see firmware main.c

const (
	CmdSetTime byte = 'S'
	CmdMessage byte = 'M'
)

const (
	TimePayloadLen    = 8 // "HH:MM:SS"
	MessagePayloadLen = 3
)

const (
	FieldSeparator  = ";"
	LineTerminator  = '\n'
	telemetryFields = 3

	// raw button value mapping to Released, anything else is Pressed
	buttonReleased = "1"

	// bounds the partial-line buffer, firmware lines are ~20 bytes
	maxLineLength = 256
)

// TimeLayout is the time.Format layout of a set-time payload.
const TimeLayout = "15:04:05"
