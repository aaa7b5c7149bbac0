// Package channel names two-party conversations.
//
// A channel id is derived from the chat ids of both participants and does not
// depend on argument order, so either side can compute it independently. The
// derived id only names the conversation; stores create it lazily.
package channel

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins the two sorted participant ids. Participant ids must not
// contain it.
const Separator = "_"

// ErrInvalidArgument is returned when a participant id is empty or malformed.
var ErrInvalidArgument = errors.New("channel: invalid participant id")

// Derive returns the canonical channel id for the pair (a, b).
func Derive(a, b string) (string, error) {
	if err := checkID(a); err != nil {
		return "", err
	}
	if err := checkID(b); err != nil {
		return "", err
	}
	if b < a {
		a, b = b, a
	}
	return a + Separator + b, nil
}

// Participants splits a channel id back into its two participant ids.
func Participants(channelID string) (string, string, error) {
	a, b, ok := strings.Cut(channelID, Separator)
	if !ok || a == "" || b == "" || strings.Contains(b, Separator) || b < a {
		return "", "", fmt.Errorf("%w: malformed channel id %q", ErrInvalidArgument, channelID)
	}
	return a, b, nil
}

// Includes reports whether id is one of the channel's participants.
func Includes(channelID, id string) bool {
	a, b, err := Participants(channelID)
	if err != nil {
		return false
	}
	return id == a || id == b
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidArgument)
	}
	if strings.Contains(id, Separator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidArgument, id, Separator)
	}
	return nil
}
