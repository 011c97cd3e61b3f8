package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")

	// Inbound payload and association state errors. Each one is reported
	// back to the sender as a typed error response.
	ErrInvalidPayload  = errors.New("invalid payload")
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrRoomNotFound    = fmt.Errorf("room %w", ErrNotFound)
	ErrNotInRoom       = errors.New("connection is not in a room")
	ErrAlreadyInRoom   = errors.New("connection is already in a room")
	ErrRoomNotOwned    = errors.New("room is served by another coordinator")
	ErrRoomIDExhausted = errors.New("could not allocate a unique room id")

	// Delivery errors stay local to one peer.
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)
