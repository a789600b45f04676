package errors

import (
	"encoding/json"
)

// Response is the JSON body written for failed HTTP requests
type Response struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// ToResponse converts any error into a response body and HTTP status.
// Errors that are not *Error are reported as internal without leaking their text.
func ToResponse(err error) (int, *Response) {
	if err == nil {
		return CodeOK.HTTPStatus(), nil
	}

	var customErr *Error
	if As(err, &customErr) {
		return customErr.Code.HTTPStatus(), &Response{
			Code:    customErr.Code,
			Message: customErr.Message,
			Meta:    customErr.Meta,
		}
	}

	return CodeInternal.HTTPStatus(), &Response{
		Code:    CodeInternal,
		Message: "internal error",
	}
}

// FromResponse rebuilds an *Error from a response body returned by the API
func FromResponse(status int, body []byte) *Error {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil || resp.Code == "" {
		return &Error{
			Code:    codeFromHTTPStatus(status),
			Message: string(body),
		}
	}

	return &Error{
		Code:    resp.Code,
		Message: resp.Message,
		Meta:    resp.Meta,
	}
}
