package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Path locates a value in the response tree: string elements are response
// keys, int elements are list indexes.
type Path []PathElement

type PathElement any

func (p Path) String() string {
	result := ""
	for i, elem := range p {
		if i > 0 {
			result += "."
		}
		switch v := elem.(type) {
		case string:
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// Location is a source position in the operation document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is one located execution error.
type Error struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
	Path      Path       `json:"path,omitempty"`
}

func (e Error) Error() string { return e.Message }

// Response is the result of executing one operation. Data is nil either when
// the request was rejected before execution began (variable coercion or plan
// failure) or when a Non-Null violation propagated to the root; the two are
// distinguished in the serialized form, where a rejected response omits the
// data entry entirely.
type Response struct {
	Data   any
	Errors []Error

	rejected bool
}

// Reject builds a pre-execution failure response carrying the given errors.
func Reject(errs ...Error) *Response {
	return &Response{Errors: errs, rejected: true}
}

// Rejected reports whether the request failed before execution began.
func (r *Response) Rejected() bool { return r.rejected }

func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if !r.rejected {
		buf.WriteString(`"data":`)
		data, err := json.Marshal(r.Data)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	if len(r.Errors) > 0 {
		if !r.rejected {
			buf.WriteByte(',')
		}
		buf.WriteString(`"errors":`)
		errs, err := json.Marshal(r.Errors)
		if err != nil {
			return nil, err
		}
		buf.Write(errs)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrorCollector accumulates located errors for one unit of execution. Fields
// and list elements completed concurrently each record into their own
// collector; the parent merges them in declared (or index) order after all
// complete, so the final error list follows initiation order regardless of
// goroutine scheduling.
type ErrorCollector struct {
	errs []Error
}

func (c *ErrorCollector) Record(e Error) {
	c.errs = append(c.errs, e)
}

func (c *ErrorCollector) Merge(o *ErrorCollector) {
	if o == nil || len(o.errs) == 0 {
		return
	}
	c.errs = append(c.errs, o.errs...)
}

func (c *ErrorCollector) Errors() []Error { return c.errs }

func (c *ErrorCollector) Len() int { return len(c.errs) }
