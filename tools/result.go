package tools

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Result is what every handler returns: content for the model plus an error flag.
type Result struct {
	Content string
	IsError bool
}

// Text returns a successful result.
func Text(s string) Result {
	return Result{Content: s}
}

// Error returns an error result carrying err's message.
func Error(err error) Result {
	if err == nil {
		return Result{Content: "unknown error", IsError: true}
	}
	return Result{Content: err.Error(), IsError: true}
}

// Errorf returns an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

// JSON returns a successful result holding v encoded as compact JSON.
func JSON(v any) Result {
	b, err := codec.Marshal(v)
	if err != nil {
		return Errorf("encode result: %v", err)
	}
	return Text(string(b))
}

// decodeInput unmarshals raw tool input into v.
func decodeInput(raw []byte, v any) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return codec.Unmarshal(raw, v)
}
