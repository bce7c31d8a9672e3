package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	maxBodyBytes = 1 << 20
	// longest accepted JSON number; keeps decimal math on small operands
	maxNumberLen = 32
)

type fieldError struct {
	field string
	msg   string
}

var (
	maxInt  = decimal.NewFromInt(math.MaxInt32)
	nullRaw = []byte("null")
)

// decodeJSON reads a single JSON object into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) *fieldError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) && ute.Field != "" {
			return &fieldError{field: ute.Field, msg: ute.Field + " must be a " + ute.Type.String()}
		}
		if errors.Is(err, io.EOF) {
			return &fieldError{msg: "request body is required"}
		}
		return &fieldError{msg: "invalid json"}
	}
	if dec.More() {
		return &fieldError{msg: "invalid json"}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, nullRaw)
}

// integral parses a JSON number whose value is a whole number, so 2, 2.0
// and 2e0 are accepted while 2.5 and "2" are not.
func integral(raw json.RawMessage, field string) (int, *fieldError) {
	if !present(raw) {
		return 0, &fieldError{field: field, msg: field + " is required"}
	}
	c := raw[0]
	if c != '-' && (c < '0' || c > '9') {
		return 0, &fieldError{field: field, msg: field + " must be a number"}
	}
	if len(raw) > maxNumberLen {
		return 0, &fieldError{field: field, msg: field + " is out of range"}
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return 0, &fieldError{field: field, msg: field + " must be a number"}
	}
	// A nonzero coefficient with a large exponent cannot fit, and one with a
	// very negative exponent has fewer digits than it needs to be whole.
	// Both are decided here because rescaling them is exponential in size.
	switch exp := d.Exponent(); {
	case d.IsZero():
		return 0, nil
	case exp > 9:
		return 0, &fieldError{field: field, msg: field + " is out of range"}
	case exp < -maxNumberLen:
		return 0, &fieldError{field: field, msg: field + " must be an integer"}
	}
	if !d.IsInteger() {
		return 0, &fieldError{field: field, msg: field + " must be an integer"}
	}
	if d.Abs().GreaterThan(maxInt) {
		return 0, &fieldError{field: field, msg: field + " is out of range"}
	}
	return int(d.IntPart()), nil
}

// pathID parses a positive integer path variable. Anything else cannot
// name an existing resource, so it is answered with 404 like an unknown id.
func pathID(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeErr(w, http.StatusNotFound, what+" "+raw+" not found")
		return 0, false
	}
	return id, true
}
