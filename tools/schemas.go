package tools

import "github.com/modelcontextprotocol/go-sdk/jsonschema"

var zero = 0.0

func str() *jsonschema.Schema     { return &jsonschema.Schema{Type: "string"} }
func integer() *jsonschema.Schema { return &jsonschema.Schema{Type: "integer", Minimum: &zero} }
func number() *jsonschema.Schema  { return &jsonschema.Schema{Type: "number", Minimum: &zero} }
func boolean() *jsonschema.Schema { return &jsonschema.Schema{Type: "boolean"} }
func strList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: str()}
}

func stepSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":                       str(),
			"kind":                     str(),
			"recipe_ids":               strList(),
			"action":                   str(),
			"category":                 str(),
			"description":              str(),
			"start_offset_minutes":     integer(),
			"duration_minutes":         integer(),
			"equipment":                strList(),
			"depends_on":               strList(),
			"completed":                boolean(),
			"completed_at":             str(),
			"completed_offset_minutes": integer(),
			"actual_duration_minutes":  integer(),
			"members": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"instruction_id":   str(),
						"recipe_id":        str(),
						"step_number":      integer(),
						"duration_minutes": integer(),
						"fulfilled":        boolean(),
					},
				},
			},
		},
		Required: []string{"id", "kind", "recipe_ids", "start_offset_minutes", "duration_minutes", "completed"},
	}
}

func timelineSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"steps": {Type: "array", Items: stepSchema()},
			"groups": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"id":         str(),
						"step_id":    str(),
						"action":     str(),
						"category":   str(),
						"recipe_ids": strList(),
						"member_ids": strList(),
					},
				},
			},
			"conflicts": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"equipment":            str(),
						"capacity":             integer(),
						"step_ids":             strList(),
						"start_offset_minutes": integer(),
						"end_offset_minutes":   integer(),
						"severity":             str(),
					},
					Required: []string{"equipment", "step_ids", "severity"},
				},
			},
			"total_minutes": integer(),
		},
		Required: []string{"steps", "conflicts", "total_minutes"},
	}
}

func mealSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":         str(),
			"recipe_id":  str(),
			"multiplier": number(),
			"date":       str(),
			"slot":       str(),
		},
		Required: []string{"id", "recipe_id", "multiplier", "date"},
	}
}

func sessionSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":           str(),
			"user_id":      str(),
			"status":       str(),
			"meals":        {Type: "array", Items: mealSchema()},
			"timeline":     timelineSchema(),
			"ingredients":  {Type: "array", Items: ingredientSchema()},
			"created_at":   str(),
			"updated_at":   str(),
			"started_at":   str(),
			"completed_at": str(),
			"revision":     integer(),
		},
		Required: []string{"id", "user_id", "status", "timeline"},
	}
}

func ingredientSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient_id":     str(),
			"name":              str(),
			"category":          str(),
			"unit":              str(),
			"amount":            number(),
			"source_recipe_ids": strList(),
		},
		Required: []string{"ingredient_id", "unit", "amount"},
	}
}

func itemSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ingredient_id":     str(),
			"name":              str(),
			"category":          str(),
			"amount":            number(),
			"unit":              str(),
			"source_session_id": {Types: []string{"string", "null"}},
			"updated_at":        str(),
		},
		Required: []string{"ingredient_id", "amount", "unit"},
	}
}

func objectOf(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}
