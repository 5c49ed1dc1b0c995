package llm

// ResponseSchema names a JSON schema for structured-output calls.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// ObjectSchema builds a strict object schema with the given properties, all
// required, and no additional properties.
func ObjectSchema(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}
