package tools

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

// ErrInvalidInput marks tool input that does not satisfy the tool's schema.
var ErrInvalidInput = errors.New("invalid input")

// validateInput checks raw against the top level of schema: the input must be
// an object, required properties must be present, declared properties must
// have the declared JSON type, and undeclared properties are rejected when the
// schema forbids them. All problems are reported together.
func validateInput(schema *jsonschema.Schema, raw []byte) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: not valid JSON", ErrInvalidInput)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return fmt.Errorf("%w: expected a JSON object", ErrInvalidInput)
	}
	if schema == nil {
		return nil
	}

	props := schemaProperties(schema)
	var problems []string

	for _, name := range schema.Required {
		if !doc.Get(gjsonKey(name)).Exists() {
			problems = append(problems, fmt.Sprintf("missing required property %q", name))
		}
	}

	closed := schema.AdditionalProperties == jsonschema.FalseSchema
	doc.ForEach(func(key, value gjson.Result) bool {
		prop, ok := props[key.String()]
		if !ok {
			if closed {
				problems = append(problems, fmt.Sprintf("unexpected property %q", key.String()))
			}
			return true
		}
		if want := prop.Type; want != "" && !hasType(value, want) {
			problems = append(problems, fmt.Sprintf("property %q must be %s", key.String(), want))
		}
		return true
	})

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}

func hasType(v gjson.Result, want string) bool {
	switch want {
	case "string":
		return v.Type == gjson.String
	case "integer":
		return v.Type == gjson.Number && v.Num == math.Trunc(v.Num)
	case "number":
		return v.Type == gjson.Number
	case "boolean":
		return v.IsBool()
	case "array":
		return v.IsArray()
	case "object":
		return v.IsObject()
	case "null":
		return v.Type == gjson.Null
	}
	return true
}

// gjsonKey escapes path syntax so a property name is matched literally.
func gjsonKey(name string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(name)
}
