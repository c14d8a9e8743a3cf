package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/plateflow/dtklpr/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "lpr_recognize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Recognition
	case "lpr_recognize":
		return s.handleRecognize(args)
	case "lpr_recognize_data":
		return s.handleRecognizeData(args)

	// Licensing
	case "lpr_license_status":
		return s.handleLicenseStatus(args)
	case "lpr_activate":
		return s.handleActivate(args)

	// Image Helpers
	case "lpr_image_info":
		return s.handleImageInfo(args)
	case "lpr_dominant_color":
		return s.handleDominantColor(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Recognition Handlers ===

// recognizeResult is the payload returned by both recognition tools. Path is
// empty when the image arrived as inline data.
type recognizeResult struct {
	Path   string   `json:"path,omitempty"`
	Found  int      `json:"found"`
	Plates []string `json:"plates"`
}

type recognizeArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleRecognize(args json.RawMessage) (interface{}, error) {
	var a recognizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	rec, err := s.recognizer.Recognize(context.Background(), data)
	if err != nil {
		return nil, err
	}
	return recognizeResult{Path: a.Path, Found: rec.Found, Plates: rec.Plates}, nil
}

type recognizeDataArgs struct {
	ImageBase64 string `json:"image_base64"`
}

func (s *Server) handleRecognizeData(args json.RawMessage) (interface{}, error) {
	var a recognizeDataArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ImageBase64 == "" {
		return nil, errors.New("image_base64 is required")
	}

	data, err := base64.StdEncoding.DecodeString(a.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("image_base64 is not valid base64: %w", err)
	}

	rec, err := s.recognizer.Recognize(context.Background(), data)
	if err != nil {
		return nil, err
	}
	return recognizeResult{Found: rec.Found, Plates: rec.Plates}, nil
}

// === Licensing Handlers ===

type licenseStatusResult struct {
	Licensed bool `json:"licensed"`
}

func (s *Server) handleLicenseStatus(_ json.RawMessage) (interface{}, error) {
	return licenseStatusResult{Licensed: s.recognizer.LicenseOK()}, nil
}

type activateArgs struct {
	Key string `json:"key"`
}

// activateResult reports the vendor's verdict. Accepted false with no error
// means the service answered and rejected the key.
type activateResult struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleActivate(args json.RawMessage) (interface{}, error) {
	var a activateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Key == "" {
		return nil, errors.New("key is required")
	}

	act, ok := s.recognizer.(Activator)
	if !ok {
		return nil, errors.New("the active backend does not support license activation")
	}

	accepted, err := act.Activate(a.Key)
	if err != nil {
		return nil, err
	}
	return activateResult{Accepted: accepted}, nil
}

// === Image Helper Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.ReadInfo(a.Path)
}

func (s *Server) handleDominantColor(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.DominantColor(img), nil
}
