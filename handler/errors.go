package handler

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrUnknownObject  = errors.New("unknown object")
	ErrMalformed      = errors.New("malformed message")
)

// ProtocolError is a message the server should never have sent: bad syntax,
// an unknown type tag or an unknown object in a see message.
type ProtocolError struct {
	Tag     string // message tag, when one could be read
	Message string // offending text, possibly truncated
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("protocol: %v: %q", e.Err, e.Message)
	}
	return fmt.Sprintf("protocol: %s: %v: %q", e.Tag, e.Err, e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerError is an (error ...) message: the server refused the connection
// or a command.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned an error: %s", e.Message)
}

const maxQuoted = 120

func protocolErr(tag, text string, err error) *ProtocolError {
	if len(text) > maxQuoted {
		text = text[:maxQuoted] + "..."
	}
	return &ProtocolError{Tag: tag, Message: text, Err: err}
}
