package tiva

import (
	"fmt"
	"strings"
	"time"
)

//go:generate stringer -type=ButtonState
type ButtonState int

const (
	Pressed ButtonState = iota
	Released
)

// Telemetry is one decoded sample, as reported once per second by the board.
type Telemetry struct {
	Time      string
	Reading   string
	ButtonRaw string
	Button    ButtonState
	Received  time.Time // set by the pump, zero when decoded directly
}

// EncodeTimeSet frames a set-time command. payload must be exactly
// 8 bytes ("HH:MM:SS"), its content is not checked.
func EncodeTimeSet(payload string) ([]byte, error) {
	if len(payload) != TimePayloadLen {
		return nil, fmt.Errorf("%w: time payload must be %d characters, got %d (%q)",
			ErrInvalidPayload, TimePayloadLen, len(payload), payload)
	}
	b := make([]byte, 0, 1+TimePayloadLen)
	b = append(b, CmdSetTime)
	return append(b, payload...), nil
}

// EncodeMessage frames a display message command, see NormalizeMessage.
func EncodeMessage(payload string) []byte {
	b := make([]byte, 0, 1+MessagePayloadLen)
	b = append(b, CmdMessage)
	return append(b, NormalizeMessage(payload)...)
}

// NormalizeMessage truncates or right-pads text with spaces to exactly
// MessagePayloadLen characters. Control characters and non-ASCII runes
// become '?', the display only prints ASCII and the frame must stay
// MessagePayloadLen bytes with no line terminator in it.
func NormalizeMessage(text string) string {
	var sb strings.Builder
	n := 0
	for _, r := range text {
		if n == MessagePayloadLen {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		sb.WriteRune(r)
		n++
	}
	for ; n < MessagePayloadLen; n++ {
		sb.WriteByte(' ')
	}
	return sb.String()
}

// FormatTime formats t as a set-time payload.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// DecodeLine decodes a "<time>;<reading>;<button>" line, without its terminator.
func DecodeLine(line string) (Telemetry, error) {
	parts := strings.Split(line, FieldSeparator)
	if len(parts) != telemetryFields {
		return Telemetry{}, fmt.Errorf("%w: %d fields in %q", ErrMalformedLine, len(parts), line)
	}
	return Telemetry{
		Time:      parts[0],
		Reading:   parts[1],
		ButtonRaw: parts[2],
		Button:    buttonState(parts[2]),
	}, nil
}

func buttonState(raw string) ButtonState {
	if strings.TrimSpace(raw) == buttonReleased {
		return Released
	}
	return Pressed
}
