// lprd watches a capture directory for new vehicle images, runs license
// plate recognition on them, and records the results. It also serves a
// small HTTP API for on-demand recognition and scan queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/plateflow/dtklpr/internal/config"
	"github.com/plateflow/dtklpr/internal/httpapi"
	"github.com/plateflow/dtklpr/internal/imaging"
	"github.com/plateflow/dtklpr/internal/logging"
	"github.com/plateflow/dtklpr/internal/recognize"
	"github.com/plateflow/dtklpr/internal/store"
	"github.com/plateflow/dtklpr/internal/watcher"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// duplicateThreshold is the similarity score above which a capture is
// treated as a repeat of the previous one and skipped. Cameras emit bursts
// of near-identical frames of the same vehicle.
const duplicateThreshold = 0.98

func main() {
	configPath := flag.String("config", config.Path(), "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lprd %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(cfg.Log.Level)

	if err := run(cfg); err != nil {
		logging.Fatalf("lprd: %v", err)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logging.Infof("lprd %s starting", Version)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := buildRecognizer(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	if rec.LicenseOK() {
		logging.Infof("recognition engine licensed")
	} else {
		logging.Warnf("recognition engine is not licensed; results may be limited")
	}

	if cfg.Watch.Enabled {
		w, err := watcher.New(cfg.Watch.Dir, cfg.Watch.Extensions, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		logging.Infof("watching %s for new captures", cfg.Watch.Dir)

		proc := &captureProcessor{rec: rec, db: db}
		go proc.consume(w)
	}

	var httpSrv *http.Server
	if cfg.HTTP.Enabled {
		api := httpapi.New(rec, db,
			httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
			httpapi.WithThumbnailMaxPx(cfg.Imaging.ThumbnailMaxPx),
		)
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logging.Infof("http api listening on %s", cfg.HTTP.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("http server: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Infof("received %s, shutting down", sig)

	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			logging.Errorf("http shutdown: %v", err)
		}
	}

	return nil
}

// buildRecognizer opens the native engine, falling back to the OCR backend
// when the library cannot be loaded and the fallback is compiled in.
func buildRecognizer(cfg *config.Config) (recognize.Recognizer, error) {
	rec, err := recognize.NewDTK(recognize.DTKOptions{
		LibraryPath:     cfg.Library.Path,
		TextBufferSize:  cfg.Library.TextBufferSize,
		LicenseKey:      cfg.Library.LicenseKey,
		ActivateOnStart: cfg.Library.ActivateOnStart,
	})
	if err == nil {
		return rec, nil
	}
	logging.Warnf("native engine unavailable: %v", err)

	fallback, ferr := recognize.NewTesseract(cfg.Imaging.OCRMinWidth)
	if ferr != nil {
		return nil, fmt.Errorf("no recognition backend available: native: %v, fallback: %w", err, ferr)
	}
	logging.Infof("using ocr fallback backend")
	return fallback, nil
}

// captureProcessor runs recognition over watcher events. It remembers the
// previous decodable frame so camera bursts of the same vehicle produce
// one scan instead of a dozen.
type captureProcessor struct {
	rec       recognize.Recognizer
	db        *store.Store
	lastFrame image.Image
}

func (p *captureProcessor) consume(w *watcher.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			p.process(ev)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logging.Errorf("watcher: %v", err)
		}
	}
}

func (p *captureProcessor) process(ev watcher.Event) {
	data, err := os.ReadFile(ev.Path)
	if err != nil {
		logging.Errorf("read capture %s: %v", ev.Path, err)
		return
	}

	// Decode once, for dedup and color sampling. Decode failure is not
	// fatal: the native engine may accept formats the Go decoders cannot.
	frame, derr := imaging.Decode(data)
	if derr == nil {
		if p.lastFrame != nil {
			if sim := imaging.Similarity(p.lastFrame, frame); sim >= duplicateThreshold {
				logging.Debugf("%s: skipping near-duplicate capture (similarity %.3f)",
					filepath.Base(ev.Path), sim)
				return
			}
		}
		p.lastFrame = frame
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := p.rec.Recognize(ctx, data)
	if err != nil {
		logging.Errorf("recognize %s: %v", ev.Path, err)
		return
	}

	scan := &store.Scan{
		Source:    "watch",
		ImagePath: ev.Path,
		Found:     result.Found,
		Plates:    result.Plates,
	}
	if derr == nil {
		if c := imaging.DominantColor(frame); c != nil {
			scan.ColorHex = c.Hex
			scan.ColorName = c.Name
		}
	}

	if err := p.db.SaveScan(scan); err != nil {
		logging.Errorf("save scan for %s: %v", ev.Path, err)
		return
	}

	if result.Found > 0 {
		logging.Infof("%s: %d plate(s) %v", filepath.Base(ev.Path), result.Found, result.Plates)
	} else {
		logging.Infof("%s: no plates found", filepath.Base(ev.Path))
	}
}
