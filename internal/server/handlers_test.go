package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/plateflow/dtklpr"
	"github.com/plateflow/dtklpr/internal/imaging"
)

// stubRecognizer is a canned backend. It also implements Activator.
type stubRecognizer struct {
	rec         *dtklpr.Recognition
	err         error
	licensed    bool
	lastImg     []byte
	activateOK  bool
	activateErr error
	lastKey     string
}

func (s *stubRecognizer) Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error) {
	s.lastImg = img
	if s.err != nil {
		return nil, s.err
	}
	if s.rec != nil {
		return s.rec, nil
	}
	return &dtklpr.Recognition{Found: 0, Plates: []string{}}, nil
}

func (s *stubRecognizer) LicenseOK() bool { return s.licensed }

func (s *stubRecognizer) Activate(key string) (bool, error) {
	s.lastKey = key
	return s.activateOK, s.activateErr
}

// fallbackRecognizer has no Activate method, like the OCR fallback backend.
type fallbackRecognizer struct{}

func (f *fallbackRecognizer) Recognize(ctx context.Context, img []byte) (*dtklpr.Recognition, error) {
	return &dtklpr.Recognition{Found: 0, Plates: []string{}}, nil
}

func (f *fallbackRecognizer) LicenseOK() bool { return false }

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	tmpFile, err := os.CreateTemp("", "lpr-handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if err := png.Encode(tmpFile, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}

	return tmpFile.Name()
}

// toolResultText extracts the JSON text payload from a tools/call response.
func toolResultText(t *testing.T, resp *MCPResponse) string {
	t.Helper()

	if resp == nil {
		t.Fatal("response is nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) == 0 {
		t.Fatalf("content should be a non-empty slice, got %T", result["content"])
	}
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatal("content[0].text should be a string")
	}
	return text
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}
	return s.handleRequest(req)
}

func TestHandleToolsCall_Recognize(t *testing.T) {
	stub := &stubRecognizer{rec: &dtklpr.Recognition{Found: 2, Plates: []string{"AB123CD", "XY999ZZ"}}}
	s := New(stub)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	resp := callTool(t, s, "lpr_recognize", map[string]interface{}{"path": imgPath})

	var got recognizeResult
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if got.Path != imgPath {
		t.Errorf("Path: got %s, want %s", got.Path, imgPath)
	}
	if got.Found != 2 {
		t.Errorf("Found: got %d, want 2", got.Found)
	}
	if len(got.Plates) != 2 || got.Plates[0] != "AB123CD" || got.Plates[1] != "XY999ZZ" {
		t.Errorf("Plates: got %v", got.Plates)
	}

	fileBytes, err := os.ReadFile(imgPath)
	if err != nil {
		t.Fatalf("failed to read image back: %v", err)
	}
	if !bytes.Equal(stub.lastImg, fileBytes) {
		t.Error("backend should receive the raw file bytes untouched")
	}
}

func TestHandleToolsCall_Recognize_NonExistentFile(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "lpr_recognize", map[string]interface{}{"path": "/nonexistent/car.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_Recognize_MissingPath(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "lpr_recognize", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for missing path")
	}
}

func TestHandleToolsCall_RecognizeData(t *testing.T) {
	stub := &stubRecognizer{rec: &dtklpr.Recognition{Found: 1, Plates: []string{"AB123CD"}}}
	s := New(stub)

	raw := []byte("raw-frame-bytes")
	resp := callTool(t, s, "lpr_recognize_data", map[string]interface{}{
		"image_base64": base64.StdEncoding.EncodeToString(raw),
	})

	var got recognizeResult
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if got.Path != "" {
		t.Errorf("Path should be empty for inline data, got %s", got.Path)
	}
	if got.Found != 1 || len(got.Plates) != 1 || got.Plates[0] != "AB123CD" {
		t.Errorf("unexpected result: %+v", got)
	}
	if !bytes.Equal(stub.lastImg, raw) {
		t.Error("backend should receive the decoded bytes")
	}
}

func TestHandleToolsCall_RecognizeData_InvalidBase64(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "lpr_recognize_data", map[string]interface{}{"image_base64": "!!!"})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid base64")
	}
}

func TestHandleToolsCall_RecognizeData_MissingData(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "lpr_recognize_data", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for missing image_base64")
	}
}

func TestHandleToolsCall_LicenseStatus(t *testing.T) {
	for _, licensed := range []bool{true, false} {
		s := New(&stubRecognizer{licensed: licensed})

		resp := callTool(t, s, "lpr_license_status", map[string]interface{}{})

		var got licenseStatusResult
		if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
			t.Fatalf("failed to unmarshal result: %v", err)
		}
		if got.Licensed != licensed {
			t.Errorf("Licensed: got %v, want %v", got.Licensed, licensed)
		}
	}
}

func TestHandleToolsCall_Activate(t *testing.T) {
	stub := &stubRecognizer{activateOK: true}
	s := New(stub)

	resp := callTool(t, s, "lpr_activate", map[string]interface{}{"key": "ABCD-1234"})

	var got activateResult
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if !got.Accepted {
		t.Error("Accepted should be true")
	}
	if stub.lastKey != "ABCD-1234" {
		t.Errorf("key: got %s, want ABCD-1234", stub.lastKey)
	}
}

func TestHandleToolsCall_Activate_Rejected(t *testing.T) {
	s := New(&stubRecognizer{activateOK: false})

	resp := callTool(t, s, "lpr_activate", map[string]interface{}{"key": "BAD-KEY"})

	// A rejected key is a clean answer from the vendor, not a tool failure.
	var got activateResult
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if got.Accepted {
		t.Error("Accepted should be false for a rejected key")
	}
}

func TestHandleToolsCall_Activate_UnsupportedBackend(t *testing.T) {
	s := New(&fallbackRecognizer{})

	resp := callTool(t, s, "lpr_activate", map[string]interface{}{"key": "ABCD-1234"})

	if resp.Error == nil {
		t.Fatal("Expected error for backend without activation support")
	}
}

func TestHandleToolsCall_Activate_MissingKey(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "lpr_activate", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for missing key")
	}
}

func TestHandleToolsCall_ImageInfo(t *testing.T) {
	s := New(&stubRecognizer{})
	imgPath := createTestImageFile(t, 120, 80, color.RGBA{0, 255, 0, 255})

	resp := callTool(t, s, "lpr_image_info", map[string]interface{}{"path": imgPath})

	var got imaging.Info
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if got.Width != 120 || got.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", got.Width, got.Height)
	}
	if got.Format != "png" {
		t.Errorf("Format: got %s, want png", got.Format)
	}
}

func TestHandleToolsCall_DominantColor(t *testing.T) {
	s := New(&stubRecognizer{})
	imgPath := createTestImageFile(t, 64, 64, color.RGBA{220, 30, 35, 255})

	resp := callTool(t, s, "lpr_dominant_color", map[string]interface{}{"path": imgPath})

	var got imaging.DominantColorResult
	if err := json.Unmarshal([]byte(toolResultText(t, resp)), &got); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if got.Hex != "#dc1e23" {
		t.Errorf("Hex: got %s, want #dc1e23", got.Hex)
	}
	if got.Name != "red" {
		t.Errorf("Name: got %s, want red", got.Name)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New(&stubRecognizer{})

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(&stubRecognizer{})

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`invalid json`),
	}

	resp := s.handleToolsCall(req)

	if resp.Error == nil {
		t.Fatal("Expected error for invalid JSON params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New(&stubRecognizer{activateOK: true})
	imgPath := createTestImageFile(t, 100, 100, color.RGBA{128, 128, 128, 255})

	// Test each tool to ensure executeTool correctly dispatches
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"lpr_recognize", map[string]interface{}{"path": imgPath}},
		{"lpr_recognize_data", map[string]interface{}{"image_base64": base64.StdEncoding.EncodeToString([]byte("data"))}},
		{"lpr_license_status", map[string]interface{}{}},
		{"lpr_activate", map[string]interface{}{"key": "ABCD-1234"}},
		{"lpr_image_info", map[string]interface{}{"path": imgPath}},
		{"lpr_dominant_color", map[string]interface{}{"path": imgPath}},
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New(&stubRecognizer{})

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(&stubRecognizer{})

	_, err := s.executeTool("lpr_recognize", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
