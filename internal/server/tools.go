package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Recognition
		{
			Name:        "lpr_recognize",
			Description: "Run license plate recognition on an image file and return the plate texts found, in detection order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lpr_recognize_data",
			Description: "Run license plate recognition on base64-encoded image bytes. Use this when the image is not on disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Image bytes encoded with standard base64",
					},
				},
				"required": []string{"image_base64"},
			},
		},

		// Licensing
		{
			Name:        "lpr_license_status",
			Description: "Report whether the recognition engine currently holds a valid license. Unlicensed engines may watermark or degrade results.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "lpr_activate",
			Description: "Activate the recognition engine license online with a vendor-issued key. Requires network access to the vendor's activation service.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Vendor-issued license key",
					},
				},
				"required": []string{"key"},
			},
		},

		// Image Helpers
		{
			Name:        "lpr_image_info",
			Description: "Get the dimensions, decoded format, and file size of an image without running recognition.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lpr_dominant_color",
			Description: "Estimate the dominant color of an image. Useful as vehicle color metadata alongside a plate read.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
