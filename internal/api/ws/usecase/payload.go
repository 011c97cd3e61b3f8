package wsUsecase

import (
	"encoding/json"
	"fmt"

	"room-broker/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Request is one decoded inbound message.
type Request interface {
	RequestType() string
}

type CreateRequest struct {
	Username string `json:"username" validate:"omitempty,max=64"`
}

type JoinRequest struct {
	RoomID   string `json:"roomId" validate:"required,len=8,hexadecimal"`
	Username string `json:"username" validate:"omitempty,max=64"`
}

type MessageRequest struct {
	Content string `json:"content" validate:"required,max=4096"`
}

func (CreateRequest) RequestType() string  { return domain.TypeCreate }
func (JoinRequest) RequestType() string    { return domain.TypeJoin }
func (MessageRequest) RequestType() string { return domain.TypeMessage }

// DecodeRequest parses an untrusted payload. The error wraps
// domain.ErrInvalidPayload or domain.ErrUnsupportedType.
func DecodeRequest(raw []byte) (Request, error) {
	var envelope domain.UserInfo
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing type", domain.ErrInvalidPayload)
	}
	envelope.Body = raw

	switch envelope.Type {
	case domain.TypeCreate:
		return decodeBody[CreateRequest](envelope)
	case domain.TypeJoin:
		return decodeBody[JoinRequest](envelope)
	case domain.TypeMessage:
		return decodeBody[MessageRequest](envelope)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, envelope.Type)
	}
}

func decodeBody[R Request](envelope domain.UserInfo) (Request, error) {
	var req R
	if err := json.Unmarshal(envelope.Body, &req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, envelope.Type, err)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, envelope.Type, err)
	}
	return req, nil
}
