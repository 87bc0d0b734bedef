package tiva

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// (Un)marshallers for the enum types, so that front-ends and
// config files see "Open" or "Pressed" instead of numbers.
//
// this file should be go-generated, too

// ---- type State int

func (s State) MarshalJSON() ([]byte, error) {
	b, err := s.MarshalText()
	if err == nil {
		b = []byte(fmt.Sprintf("\"%s\"", string(b)))
	}
	return b, err
}

func (s *State) UnmarshalJSON(data []byte) error {
	dataLength := len(data)
	if dataLength < 2 || data[0] != '"' || data[dataLength-1] != '"' {
		return errors.New("State.UnmarshalJSON: Invalid JSON provided")
	}
	return s.UnmarshalText(data[1 : dataLength-1])
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	i, err := parseEnum(string(b), _State_name, _State_index[:])
	if err != nil {
		return fmt.Errorf("State: %s", err)
	}
	*s = State(i)
	return nil
}

// ---- type ButtonState int

func (bs ButtonState) MarshalJSON() ([]byte, error) {
	b, err := bs.MarshalText()
	if err == nil {
		b = []byte(fmt.Sprintf("\"%s\"", string(b)))
	}
	return b, err
}

func (bs *ButtonState) UnmarshalJSON(data []byte) error {
	dataLength := len(data)
	if dataLength < 2 || data[0] != '"' || data[dataLength-1] != '"' {
		return errors.New("ButtonState.UnmarshalJSON: Invalid JSON provided")
	}
	return bs.UnmarshalText(data[1 : dataLength-1])
}

func (bs ButtonState) MarshalText() ([]byte, error) {
	return []byte(bs.String()), nil
}

func (bs *ButtonState) UnmarshalText(b []byte) error {
	i, err := parseEnum(string(b), _ButtonState_name, _ButtonState_index[:])
	if err != nil {
		return fmt.Errorf("ButtonState: %s", err)
	}
	*bs = ButtonState(i)
	return nil
}

// parseEnum looks str up in stringer tables, or accepts its numeric value.
func parseEnum(str string, names string, index []uint8) (int, error) {
	if i, err := strconv.Atoi(str); err == nil {
		if i < 0 || i >= len(index)-1 {
			return 0, fmt.Errorf("%d is out of range", i)
		}
		return i, nil
	}
	if str != "" {
		idx := strings.Index(names, str)
		for i := 0; idx >= 0 && i < len(index)-1; i++ {
			if int(index[i]) == idx && int(index[i+1]) == idx+len(str) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("cannot unmarshal \"%s\", is it misspelled?", str)
}
