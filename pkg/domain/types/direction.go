package types

import (
	"github.com/m-mizutani/goerr/v2"
)

// Direction indicates who sent a message in a conversation
type Direction string

const (
	// DirectionInbound is a message from the customer
	DirectionInbound Direction = "inbound"
	// DirectionOutbound is a message from the agent (human or generated)
	DirectionOutbound Direction = "outbound"
)

// Validate checks if the Direction is one of the known values
func (d Direction) Validate() error {
	switch d {
	case DirectionInbound, DirectionOutbound:
		return nil
	default:
		return goerr.New("invalid message direction", goerr.V("direction", d))
	}
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// Role returns the speaker role label used in prompts
func (d Direction) Role() string {
	if d == DirectionOutbound {
		return "agent"
	}
	return "customer"
}
