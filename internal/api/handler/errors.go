package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/draftroom/internal/api/apierr"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields
func decodeBody(r *http.Request, v any) error {
	return decode(r, v, false)
}

// decodeOptionalBody is decodeBody, but an empty body leaves v untouched
func decodeOptionalBody(r *http.Request, v any) error {
	return decode(r, v, true)
}

func decode(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apierr.NewInvalidRequestError("Invalid request body")
	}
	return nil
}
