package llm

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Validate checks a struct against its `validate` tags.
func Validate(s any) error {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate.Struct(s)
}

// GenerateJSONSchema produces a JSON schema for the given value, used
// to tell a judge endpoint the exact reply shape expected of it.
func GenerateJSONSchema(v any) ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)
	return json.MarshalIndent(schema, "", "  ")
}
