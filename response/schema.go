package response

// Schema is a structured-output schema in the form the generative backend
// accepts for responseSchema.
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Enum             []string           `json:"enum,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	Items            *Schema            `json:"items,omitempty"`
	Required         []string           `json:"required,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
}

const (
	typeObject  = "OBJECT"
	typeArray   = "ARRAY"
	typeString  = "STRING"
	typeNumber  = "NUMBER"
	typeBoolean = "BOOLEAN"
)

func str() *Schema { return &Schema{Type: typeString} }

// TreeSchema returns the reply contract: exactly nodes, edges and
// conversationalResponse, all required.
func TreeSchema() *Schema {
	position := &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"x": {Type: typeNumber},
			"y": {Type: typeNumber},
		},
		Required:         []string{"x", "y"},
		PropertyOrdering: []string{"x", "y"},
	}
	data := &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"label":       str(),
			"stage":       str(),
			"description": str(),
			"timing":      str(),
		},
		Required:         []string{"label", "stage", "description", "timing"},
		PropertyOrdering: []string{"label", "stage", "description", "timing"},
	}
	node := &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"id":       str(),
			"type":     {Type: typeString, Enum: []string{"input", "phenological", "output"}},
			"position": position,
			"data":     data,
		},
		Required:         []string{"id", "type", "position", "data"},
		PropertyOrdering: []string{"id", "type", "position", "data"},
	}
	edge := &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"id":       str(),
			"source":   str(),
			"target":   str(),
			"animated": {Type: typeBoolean},
			"label":    str(),
		},
		Required:         []string{"id", "source", "target", "animated", "label"},
		PropertyOrdering: []string{"id", "source", "target", "animated", "label"},
	}

	return &Schema{
		Type: typeObject,
		Properties: map[string]*Schema{
			"nodes": {Type: typeArray, Items: node},
			"edges": {Type: typeArray, Items: edge},
			"conversationalResponse": {
				Type:        typeString,
				Description: "A natural language response for conversational messages. Empty string if not a conversational message.",
			},
		},
		Required:         []string{"nodes", "edges", "conversationalResponse"},
		PropertyOrdering: []string{"conversationalResponse", "nodes", "edges"},
	}
}
