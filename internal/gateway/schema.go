package gateway

// Wire types for the generative-language REST API.

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMIMEType string                 `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]interface{} `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// responseSchema constrains the model to the exact analysis result shape.
// Responses that fail this schema, or fail JSON parsing, are service errors;
// they are never silently coerced.
var responseSchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"overallStatus": map[string]interface{}{
			"type":        "STRING",
			"description": "A summary conclusion for the product: 'Appears Halal', 'Contains Haram Ingredients', 'Contains Doubtful Ingredients', or 'Product Not Found'.",
		},
		"ingredients": map[string]interface{}{
			"type": "ARRAY",
			"items": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "STRING",
						"description": "The name of the ingredient or E-code.",
					},
					"status": map[string]interface{}{
						"type":        "STRING",
						"enum":        []string{"Halal", "Haram", "Mushbooh"},
						"description": "The Halal classification of the ingredient.",
					},
					"reason": map[string]interface{}{
						"type":        "STRING",
						"description": "A brief explanation for the classification, especially for Haram or Mushbooh status. For Halal, state 'Generally considered Halal'.",
					},
				},
				"required": []string{"name", "status", "reason"},
			},
		},
		"halalLogoDetected": map[string]interface{}{
			"type":        "BOOLEAN",
			"description": "True if a recognized Halal certification logo is clearly visible in the image, otherwise false.",
		},
	},
	"required": []string{"overallStatus", "ingredients", "halalLogoDetected"},
}
