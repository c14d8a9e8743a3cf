// Package server implements the MCP (Model Context Protocol) server for
// license plate recognition tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the plate
// recognition engine through the MCP protocol. It's designed to work with
// Claude and other MCP-compatible clients, enabling AI systems to read
// plates from images on disk or supplied inline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Recognition:
//   - lpr_recognize: Read plates from an image file
//   - lpr_recognize_data: Read plates from base64-encoded image bytes
//
// Licensing:
//   - lpr_license_status: Report whether the engine holds a valid license
//   - lpr_activate: Activate a license key online
//
// Image Helpers:
//   - lpr_image_info: Dimensions, format, and file size of an image
//   - lpr_dominant_color: Dominant color estimate, e.g. vehicle color
//
// # Backends
//
// The server is constructed with a Recognizer and never touches the native
// library directly. Backends that support online activation additionally
// implement Activator; lpr_activate fails cleanly on those that don't,
// such as the OCR fallback.
//
// # Image Caching
//
// Pixel-level helpers load images through an in-memory cache keyed by path,
// so repeated calls against the same file decode it once. Recognition reads
// the raw file bytes directly: the engine accepts formats the Go decoders
// may not.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	srv := server.New(recognizer)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
