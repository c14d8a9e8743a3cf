package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/plateflow/dtklpr/internal/config"
	"github.com/plateflow/dtklpr/internal/recognize"
	"github.com/plateflow/dtklpr/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("dtk-lpr-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("dtk-lpr-mcp - MCP server for license plate recognition")
			fmt.Println()
			fmt.Println("Usage: dtk-lpr-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  LPR_LIBRARY_PATH=/path/to/libDTKLPR5.so   Native engine library")
			fmt.Println("  LPR_TEXT_BUFFER_SIZE=64                   Plate text buffer size")
			fmt.Println("  LPR_LICENSE_KEY=XXXX-XXXX                 Activate this key on startup")
			fmt.Println("  LPR_MCP_LOG_LEVEL=debug                   Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if os.Getenv("LPR_MCP_LOG_LEVEL") == "debug" {
		log.Printf("LPR MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New(buildRecognizer())
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// buildRecognizer opens the native engine, falling back to the OCR backend
// when the library cannot be loaded and the fallback is compiled in.
func buildRecognizer() server.Recognizer {
	defaults := config.Default()

	libPath := os.Getenv("LPR_LIBRARY_PATH")
	if libPath == "" {
		libPath = defaults.Library.Path
	}

	bufSize := defaults.Library.TextBufferSize
	if raw := os.Getenv("LPR_TEXT_BUFFER_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Fatalf("Invalid LPR_TEXT_BUFFER_SIZE %q", raw)
		}
		bufSize = n
	}

	key := os.Getenv("LPR_LICENSE_KEY")

	rec, err := recognize.NewDTK(recognize.DTKOptions{
		LibraryPath:     libPath,
		TextBufferSize:  bufSize,
		LicenseKey:      key,
		ActivateOnStart: key != "",
	})
	if err == nil {
		return rec
	}
	log.Printf("Native engine unavailable: %v", err)

	fallback, ferr := recognize.NewTesseract(defaults.Imaging.OCRMinWidth)
	if ferr != nil {
		log.Fatalf("No recognition backend available: %v", ferr)
	}
	log.Printf("Using OCR fallback backend")
	return fallback
}
