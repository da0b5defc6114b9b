package ai

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// planSchema is the JSON schema of planResponse, inlined without $ref so
// both the CLI and strict structured outputs accept it.
var planSchema, planSchemaJSON = buildPlanSchema()

func buildPlanSchema() (map[string]any, string) {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	data, err := json.Marshal(r.Reflect(&planResponse{}))
	if err != nil {
		panic("ai: marshaling plan schema: " + err.Error())
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic("ai: decoding plan schema: " + err.Error())
	}
	delete(m, "$schema")
	delete(m, "$id")

	out, err := json.Marshal(m)
	if err != nil {
		panic("ai: encoding plan schema: " + err.Error())
	}
	return m, string(out)
}
