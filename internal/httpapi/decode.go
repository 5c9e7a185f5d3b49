package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty request body")

// readJSON decodes exactly one JSON value into dst. Unknown fields and
// trailing values are rejected; an empty body yields errEmptyBody.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple json values")
	default:
		return err
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return readJSON(w, r, dst)
}

// decodeJSONAllowEmpty is decodeJSON for endpoints whose body is optional.
func decodeJSONAllowEmpty(w http.ResponseWriter, r *http.Request, dst any) (bool, error) {
	err := readJSON(w, r, dst)
	if errors.Is(err, errEmptyBody) {
		return true, nil
	}
	return false, err
}
