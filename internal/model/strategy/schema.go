package strategy

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// SchemaName names the response schema when a provider asks for one.
const SchemaName = "conversation_strategy"

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

// keywords strict structured-output endpoints reject.
var strictUnsupported = []string{"maxLength", "maxItems", "$schema", "$id"}

var (
	schemaOnce sync.Once
	schemaDoc  map[string]any
	schemaText string
)

// ResponseSchema returns the JSON schema of Payload with every property
// required and no additional properties. Callers get a fresh copy.
func ResponseSchema() map[string]any {
	loadSchema()
	return cloneMap(schemaDoc)
}

// ResponseSchemaJSON is ResponseSchema rendered for a prompt.
func ResponseSchemaJSON() string {
	loadSchema()
	return schemaText
}

// StrictResponseSchema is ResponseSchema without the length keywords that
// strict JSON-schema modes refuse. Length limits are still enforced by Validate.
func StrictResponseSchema() map[string]any {
	s := ResponseSchema()
	stripKeywords(s)
	return s
}

func loadSchema() {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties:  false,
			DoNotReference:             true,
			RequiredFromJSONSchemaTags: true,
		}
		doc, err := schemaToMap(reflector.Reflect(&Payload{}))
		if err != nil {
			panic(fmt.Sprintf("strategy schema: %v", err))
		}
		delete(doc, "$schema")
		delete(doc, "$id")
		ensureStrict(doc)
		schemaDoc = doc

		text, err := json.Marshal(doc)
		if err != nil {
			panic(fmt.Sprintf("strategy schema: %v", err))
		}
		schemaText = string(text)
	})
}

func schemaToMap(schema *jsonschema.Schema) (map[string]any, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ensureStrict closes every object and marks all of its properties required.
func ensureStrict(schema map[string]any) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]any); ok {
			requiredFields := make([]string, 0, len(properties))
			for propName := range properties {
				requiredFields = append(requiredFields, propName)
			}
			sort.Strings(requiredFields)
			if len(requiredFields) > 0 {
				schema[requiredKey] = requiredFields
			}
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				ensureStrict(propMap)
			}
		}
	}

	if items, ok := schema[itemsKey].(map[string]any); ok {
		ensureStrict(items)
	}
}

func stripKeywords(schema map[string]any) {
	for _, key := range strictUnsupported {
		delete(schema, key)
	}
	if properties, ok := schema[propertiesKey].(map[string]any); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]any); ok {
				stripKeywords(propMap)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]any); ok {
		stripKeywords(items)
	}
}

func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
