package auth

import "errors"

var (
	// ErrTransport means the request never produced a response.
	ErrTransport = errors.New("transport failure")
	// ErrParse means the response body was not the JSON we expected.
	ErrParse = errors.New("malformed response")
	// ErrEmptyResult means a well-formed response lacked the field we asked for.
	ErrEmptyResult = errors.New("empty result")
)
