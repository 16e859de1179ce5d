// Package cms holds the wire-level vocabulary shared by everything that talks
// to the content-management API.
package cms

import "fmt"

// SuccessCode is the only response code the CMS uses for a successful call
const SuccessCode = "A000000"

// Encoding selects how request parameters travel
type Encoding int

const (
	// EncodingQuery sends a GET with a percent-encoded query string
	EncodingQuery Encoding = iota
	// EncodingRawQuery sends a GET with values written as-is in insertion
	// order; only characters that cannot appear in a request line are escaped
	EncodingRawQuery
	// EncodingJSON sends a POST with a JSON object body
	EncodingJSON
)

func (e Encoding) String() string {
	switch e {
	case EncodingQuery:
		return "query"
	case EncodingRawQuery:
		return "raw-query"
	case EncodingJSON:
		return "json"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Param is one request parameter. Order is preserved on the wire.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered parameter list
type Params []Param

// Add appends a parameter
func (p *Params) Add(key string, value any) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Get returns the first value stored under key
func (p Params) Get(key string) (any, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}
	return nil, false
}

// Keys lists parameter names in order
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, param := range p {
		keys[i] = param.Key
	}
	return keys
}

// Request is one call against the CMS
type Request struct {
	Path     string
	Encoding Encoding
	Params   Params
}

// Record is one object from a list response with its keys in wire order
type Record struct {
	Keys   []string
	Values map[string]any
}

// NewRecord creates an empty record
func NewRecord() Record {
	return Record{Values: make(map[string]any)}
}

// Set stores a value, remembering the key's first position
func (r *Record) Set(key string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Get returns the value under key, nil when absent
func (r Record) Get(key string) any {
	return r.Values[key]
}

// Response is a decoded CMS reply
type Response struct {
	StatusCode int
	Code       string
	Msg        string
	Total      int64
	Rows       []Record
	HasRows    bool // rows was present as an array, possibly empty
	Body       []byte
}

// OK reports whether the reply carries the success code
func (r *Response) OK() bool {
	return r != nil && r.Code == SuccessCode
}

// APIError is a well-formed reply whose code is not SuccessCode
type APIError struct {
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms returned code %s: %s", e.Code, e.Msg)
}

// StatusError is a reply with a non-200 HTTP status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms returned HTTP %d", e.StatusCode)
}
