package domain

import "encoding/json"

// Inbound message types.
const (
	TypeCreate  = "create"
	TypeJoin    = "join"
	TypeMessage = "message"
)

// Outbound message types.
const (
	TypeRoomCreated  = "roomCreated"
	TypeRoomJoined   = "roomJoined"
	TypeMemberJoined = "memberJoined"
	TypeMemberLeft   = "memberLeft"
	TypeError        = "error"
)

// Error codes carried in ErrorData.
const (
	CodeInvalidPayload  = "INVALID_PAYLOAD"
	CodeUnsupportedType = "UNSUPPORTED_TYPE"
	CodeRoomNotFound    = "ROOM_NOT_FOUND"
	CodeRoomNotOwned    = "ROOM_NOT_OWNED"
	CodeNotInRoom       = "NOT_IN_ROOM"
	CodeAlreadyInRoom   = "ALREADY_IN_ROOM"
	CodeInternal        = "INTERNAL"
)

const RoomCreatedMessage = "Room Creation Sucessful"

// UserInfo is the inbound envelope. Body keeps the whole raw payload so the
// per-type request can be decoded from it once Type is known.
type UserInfo struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"-"`
}

// SocketResponse is the outbound envelope.
type SocketResponse[T any] struct {
	Type    string `json:"type"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func NewSocketResponse[T any](typ string, data T, message string) SocketResponse[T] {
	return SocketResponse[T]{Type: typ, Data: data, Message: message}
}

type ErrorData struct {
	Code string `json:"code"`
}

type RoomCreatedData struct {
	RoomID string `json:"roomId"`
}

type RoomJoinedData struct {
	RoomID  string `json:"roomId"`
	Members int    `json:"members"`
}

type MemberData struct {
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username,omitempty"`
}

type ChatData struct {
	RoomID  string `json:"roomId"`
	From    string `json:"from"`
	Content string `json:"content"`
}
