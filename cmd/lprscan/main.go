// lprscan runs license plate recognition over image files from the command
// line. It prints one line per image, or JSON objects with -json, and exits
// nonzero when no plates were found anywhere.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/plateflow/dtklpr"
	"github.com/plateflow/dtklpr/internal/config"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

type fileResult struct {
	Path   string   `json:"path"`
	Found  int      `json:"found"`
	Plates []string `json:"plates"`
}

type options struct {
	libPath string
	bufSize int
	key     string
	asJSON  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.libPath, "lib", config.Default().Library.Path, "path to the vendor dynamic library")
	flag.IntVar(&opts.bufSize, "bufsize", dtklpr.DefaultTextBufferSize, "plate text buffer size in bytes")
	flag.StringVar(&opts.key, "key", "", "license key to activate online before scanning")
	flag.BoolVar(&opts.asJSON, "json", false, "emit one JSON object per image instead of text")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("lprscan %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	os.Exit(run(opts, flag.Args()))
}

// run does the actual work and returns the process exit code: 0 when at
// least one plate was found, 1 when none were, 2 on errors. Deferred engine
// teardown must run before os.Exit, hence the separate function.
func run(opts options, args []string) int {
	lib, err := dtklpr.Open(opts.libPath, opts.bufSize)
	if err != nil {
		errorf("open library: %v", err)
		return 2
	}

	eng, err := lib.NewEngine(nil)
	if err != nil {
		errorf("create engine: %v", err)
		return 2
	}
	defer eng.Close()

	if opts.key != "" {
		accepted, err := eng.Activate(opts.key)
		if err != nil {
			errorf("activate license: %v", err)
			return 2
		}
		if !accepted {
			errorf("activate license: key rejected by activation service")
			return 2
		}
		fmt.Fprintln(os.Stderr, "license activated")
	}

	if licensed, err := eng.IsLicensed(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: license check failed: %v\n", err)
	} else if !licensed {
		fmt.Fprintln(os.Stderr, "warning: engine is not licensed; results may be limited")
	}

	paths, err := collectImages(args)
	if err != nil {
		errorf("%v", err)
		return 2
	}
	if len(paths) == 0 {
		errorf("no image files found in the given paths")
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	anyFound := false
	for _, p := range paths {
		res, err := scanFile(eng, p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", p, err)
			continue
		}
		if res.Found > 0 {
			anyFound = true
		}
		if opts.asJSON {
			if err := enc.Encode(res); err != nil {
				errorf("encode result: %v", err)
				return 2
			}
			continue
		}
		if res.Found == 0 {
			fmt.Printf("%s: no plates\n", p)
		} else {
			fmt.Printf("%s: %d plate(s): %s\n", p, res.Found, strings.Join(res.Plates, ", "))
		}
	}

	if !anyFound {
		return 1
	}
	return 0
}

// collectImages expands the argument list, walking directories for files
// with a recognized image extension.
func collectImages(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if imageExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

func scanFile(eng *dtklpr.Engine, path string) (*fileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := eng.Process(data)
	if err != nil {
		return nil, err
	}
	return &fileResult{Path: path, Found: rec.Found, Plates: rec.Plates}, nil
}

func errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lprscan: "+format+"\n", args...)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: lprscan [options] <image-or-directory>...

Runs license plate recognition over the given images. Directories are
walked for .jpg, .jpeg, .png and .bmp files.

Options:
`)
	flag.PrintDefaults()
}
