// Command staticlint is the project's static analysis tool. It combines
// standard analyzers from the Go toolchain, third-party analyzers, a
// configurable set of staticcheck analyzers and the project-specific
// noosexit analyzer into a single multichecker.Main invocation.
//
// The staticcheck analyzers to enable are listed in a JSON file:
//
//	{"Staticcheck": ["SA1000", "SA4006", "SA5008"]}
//
// The file is looked up at $STATICLINT_CONFIG, then as config.json next to the
// binary. Without a file, defaultStaticcheck is used.
//
// Usage:
//
//	go build -o staticlint ./cmd/staticlint && ./staticlint ./...
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Standard analyzers from the Go toolchain.
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"

	// Third-party analyzers.
	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"

	// Custom analyzer.
	"github.com/patric-chuzhbe/linkclicks/cmd/staticlint/noosexit"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"honnef.co/go/tools/staticcheck"
)

// Config is the name of the JSON configuration file that lists enabled staticcheck analyzers.
const Config = `config.json`

// ConfigEnv overrides the configuration file location.
const ConfigEnv = `STATICLINT_CONFIG`

var defaultStaticcheck = []string{"SA1000", "SA1019", "SA4006", "SA4010", "SA5008", "SA9003"}

// ConfigData describes the structure of the configuration file.
// The Staticcheck field contains the names of enabled staticcheck analyzers, e.g., "SA1000", "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	multichecker.Main(collectAnalyzers(cfg)...)
}

func loadConfig() (*ConfigData, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		appfile, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.Executable()` calling: %w", err)
		}
		path = filepath.Join(filepath.Dir(appfile), Config)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ConfigData{Staticcheck: defaultStaticcheck}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `os.ReadFile()` calling: %w", err)
	}

	var cfg ConfigData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("in cmd/staticlint/main.go/loadConfig(): error while `json.Unmarshal()` calling: %w", err)
	}

	return &cfg, nil
}

func collectAnalyzers(cfg *ConfigData) []*analysis.Analyzer {
	// Standard and custom analyzers that are always run.
	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,     // Checks for copying of locks by value.
		errorsas.Analyzer,     // Checks the second argument of errors.As.
		httpresponse.Analyzer, // Checks for using an HTTP response before checking the error.
		loopclosure.Analyzer,  // Detects references to loop variables inside closures.
		lostcancel.Analyzer,   // Finds contexts that are not canceled.
		printf.Analyzer,       // Verifies format strings.
		structtag.Analyzer,    // Checks for incorrect struct field tags.
		unmarshal.Analyzer,    // Detects non-pointer unmarshal targets.
		unreachable.Analyzer,  // Detects unreachable code.

		ineffassign.Analyzer, // Detects ineffective assignments.
		nilerr.Analyzer,      // Flags returning nil after an error was checked.

		noosexit.Analyzer, // Project-specific: guards the exit paths of main.main.
	}

	checks := make(map[string]bool)
	for _, v := range cfg.Staticcheck {
		checks[v] = true
	}

	for _, v := range staticcheck.Analyzers {
		if checks[v.Analyzer.Name] {
			myChecks = append(myChecks, v.Analyzer)
		}
	}

	return myChecks
}
