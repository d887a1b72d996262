package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CallbackSeparator joins the action prefix with its arguments.
	CallbackSeparator = ":"
	// CallbackLimitBytes is the Telegram hard limit on callback data.
	CallbackLimitBytes = 64
)

// Encode builds callback data of the form "action:arg1:arg2". The action
// doubles as the routing prefix, so handlers register on "action:".
func Encode(action string, args ...string) (string, error) {
	if action == "" {
		return "", errors.New("callback action is empty")
	}

	payload := action
	if len(args) > 0 {
		payload = action + CallbackSeparator + strings.Join(args, CallbackSeparator)
	}

	if len(payload) > CallbackLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackLimitBytes, len(payload))
	}

	return payload, nil
}

// Decode splits callback data produced by Encode into the action and its
// arguments. Data without a separator is an action with no arguments.
func Decode(payload string) (action string, args []string, err error) {
	if payload == "" {
		return "", nil, errors.New("callback data is empty")
	}

	parts := strings.Split(payload, CallbackSeparator)
	return parts[0], parts[1:], nil
}
