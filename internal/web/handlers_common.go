package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/persons/internal/core"
)

// maxJSONBody bounds single-person request bodies.
const maxJSONBody = 64 << 10

// parseIntParam parses an integer query parameter, returning defaultVal when
// it is absent or not a number. Range checks are left to the service.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// decodeFields reads a JSON object body. Numbers are kept as json.Number so
// ages survive without float rounding.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			return nil, err
		case errors.Is(err, io.EOF):
			return nil, &core.RequestError{Message: "request body is empty"}
		}
		return nil, &core.RequestError{Message: "request body must be a JSON object"}
	}
	if fields == nil {
		return nil, &core.RequestError{Message: "request body must be a JSON object"}
	}
	return fields, nil
}
