package service

import (
	"errors"

	"parkingagent/backend/services/parking-agent/internal/clients"
	"parkingagent/backend/services/parking-agent/internal/session"
	"parkingagent/backend/services/parking-agent/internal/token"
)

var (
	// ErrUnknownVehicle is returned by the manual path for a plate not on the account.
	ErrUnknownVehicle = errors.New("parking: vehicle not registered to account")
	// ErrNoRule is returned by the manual path when no pricing rule resolves.
	ErrNoRule = errors.New("parking: no pricing rule for vehicle type")
	// ErrNoPlates is returned when a fines query names no plate.
	ErrNoPlates = errors.New("fines: no plates given")
)

// IsFatal reports whether err must end the whole run rather than a single stage.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *clients.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var authErr *session.AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}
	return errors.Is(err, token.ErrDecode)
}
