package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached request.
type Key struct {
	// Method is the HTTP verb (e.g., "GET", "POST")
	Method string

	// URL is the absolute request URL without query string
	URL string

	// Payload is the query params (GET) or request body (POST). nil means none.
	Payload any
}

// String generates a deterministic cache key string.
// Format: METHOD:URL:canonical-json
//
// Example:
//
//	POST:https://api.example.com/api/cases/list:{"page":1,"q":"land"}
//
// Object keys are sorted at every depth, so a struct and a map holding the
// same fields produce the same key.
func (k Key) String() string {
	payload, err := canonicalJSON(k.Payload)
	if err != nil {
		// Unserializable payloads still get a stable, if less precise, key.
		payload = fmt.Sprintf("%v", k.Payload)
	}
	return strings.ToUpper(k.Method) + ":" + k.URL + ":" + payload
}

// canonicalJSON encodes v with sorted object keys.
// encoding/json sorts map keys but keeps struct field order, so the value is
// round-tripped through a generic representation first.
func canonicalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" {
		return "", nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", err
	}

	out, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
