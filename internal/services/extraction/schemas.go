package extraction

import (
	"github.com/google/generative-ai-go/genai"
)

// Output schemas for schema-constrained responses. The backend is
// instructed to return only JSON matching these shapes; every field is
// still re-validated at runtime after decoding.

var classifySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"match": {Type: genai.TypeBoolean},
	},
	Required: []string{"match"},
}

var glucoseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"value": {Type: genai.TypeNumber},
		"unit": {
			Type: genai.TypeString,
			Enum: []string{"mg/dL", "mmol/L"},
		},
		"context": {
			Type: genai.TypeString,
			Enum: []string{"fasting", "before_meal", "after_meal", "bedtime", "random"},
		},
	},
	Required: []string{"value", "unit", "context"},
}

var weightSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"value": {Type: genai.TypeNumber},
		"unit": {
			Type: genai.TypeString,
			Enum: []string{"kg", "lb"},
		},
	},
	Required: []string{"value", "unit"},
}

var bloodPressureSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"systolic":  {Type: genai.TypeInteger},
		"diastolic": {Type: genai.TypeInteger},
		"pulse":     {Type: genai.TypeInteger},
	},
	Required: []string{"systolic", "diastolic", "pulse"},
}

var nutritionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"calories": {Type: genai.TypeNumber},
		"carbs":    {Type: genai.TypeNumber},
		"protein":  {Type: genai.TypeNumber},
		"fat":      {Type: genai.TypeNumber},
	},
	Required: []string{"calories", "carbs", "protein", "fat"},
}

var mealSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description": {Type: genai.TypeString},
		"items": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":      {Type: genai.TypeString},
					"nutrition": nutritionSchema,
				},
				Required: []string{"name", "nutrition"},
			},
		},
		"totals": nutritionSchema,
	},
	Required: []string{"description", "items", "totals"},
}

var medicationMatchSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":     {Type: genai.TypeString},
		"quantity": {Type: genai.TypeNumber},
	},
	Required: []string{"name", "quantity"},
}

// JSON examples for backends without native schema enforcement.
const (
	classifyFormat = `{"match": true}`
	glucoseFormat  = `{"value": 112.0, "unit": "mg/dL", "context": "fasting"}`
	weightFormat   = `{"value": 72.5, "unit": "kg"}`
	bpFormat       = `{"systolic": 120, "diastolic": 80, "pulse": 64}`
	mealFormat     = `{"description": "...", "items": [{"name": "...", "nutrition": {"calories": 0, "carbs": 0, "protein": 0, "fat": 0}}], "totals": {"calories": 0, "carbs": 0, "protein": 0, "fat": 0}}`
	medFormat      = `{"name": "Metformin", "quantity": 2}`
)
