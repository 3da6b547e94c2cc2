// cgolden checks C sources with the style engine and compares each unit's
// report against a recorded golden file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"

	"github.com/mirzafahad/embedded-c-style-guide/pkg/config"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/engine"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/report"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/rules"
	"github.com/mirzafahad/embedded-c-style-guide/pkg/source"
)

type Status string

const (
	Pass  Status = "PASS"
	Fail  Status = "FAIL"
	Skip  Status = "SKIP"
	Error Status = "ERROR"
)

type UnitResult struct {
	Unit     string        `json:"unit"`
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
	Got      *report.Unit  `json:"got,omitempty"`
}

type SuiteResults map[string]*UnitResult

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

type suite struct {
	fs      afero.Fs
	engine  *engine.Engine
	jsonDir string
	jobs    int
	verbose bool
	out     io.Writer
}

func main() {
	var (
		generate   = flag.String("generate-golden", "", "Record golden files for the units of the given files (space-separated).")
		testFiles  = flag.String("test-files", "testdata/*.c testdata/*.h", "Glob pattern(s) for files to test (space-separated).")
		configPath = flag.String("config", "", "Rule configuration (.yaml or .toml).")
		outputJSON = flag.String("output", ".cgolden_results.json", "Output file for the JSON suite report.")
		jsonDir    = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to the unit's directory).")
		jobs       = flag.Int("j", 4, "Number of parallel checks.")
		verbose    = flag.Bool("v", false, "Print every result, not only failures.")
	)
	flag.Parse()
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := afero.NewOsFs()
	cfg := config.NewConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(fs, *configPath); err != nil {
			log.Fatalf("%s[ERROR]%s %v", cRed, cNone, err)
		}
	}
	rs, err := rules.Compile(cfg)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v", cRed, cNone, err)
	}
	s := &suite{
		fs:      fs,
		engine:  engine.New(rs, engine.WithWorkers(1), engine.WithFS(fs)),
		jsonDir: *jsonDir,
		jobs:    max(*jobs, 1),
		verbose: *verbose,
		out:     os.Stdout,
	}

	if *generate != "" {
		for _, u := range engine.Units(strings.Fields(*generate)) {
			path, err := s.generateGolden(ctx, u)
			if err != nil {
				log.Fatalf("%s[ERROR]%s %s: %v", cRed, cNone, u.Name, err)
			}
			log.Printf("%s[SUCCESS]%s Golden file created at %s", cGreen, cNone, path)
		}
		return
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := s.run(ctx, engine.Units(files))
	s.printSummary(results)
	resultsMap := writeJSONReport(results, *outputJSON, *jsonDir)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func (s *suite) goldenPath(u source.Unit) string {
	name := "." + filepath.Base(u.Name) + ".json"
	if s.jsonDir != "" {
		return filepath.Join(s.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(u.Name), name)
}

// hashUnit computes the xxhash of the unit's files, header first.
func hashUnit(fs afero.Fs, u source.Unit) (string, error) {
	h := xxhash.New()
	for _, f := range u.Files() {
		fh, err := fs.Open(f.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\x00", f.Role)
		_, err = io.Copy(h, fh)
		fh.Close()
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// portable strips the unit's directory from every path in the report so
// golden files do not depend on where the tree is checked out.
func portable(u source.Unit, rep engine.UnitReport) report.Unit {
	ru := report.Convert(&engine.RunReport{Units: []engine.UnitReport{rep}}).Units[0]
	dir := filepath.Dir(u.Name) + string(filepath.Separator)
	ru.Unit = filepath.Base(ru.Unit)
	for i, f := range ru.Files {
		ru.Files[i] = filepath.Base(f)
	}
	for i := range ru.Violations {
		ru.Violations[i].File = filepath.Base(ru.Violations[i].File)
	}
	for i, e := range ru.Errors {
		ru.Errors[i] = strings.ReplaceAll(e, dir, "")
	}
	return ru
}

func (s *suite) generateGolden(ctx context.Context, u source.Unit) (string, error) {
	got := portable(u, s.engine.Check(ctx, u))
	data, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		return "", err
	}
	if s.jsonDir != "" {
		if err := s.fs.MkdirAll(s.jsonDir, 0o755); err != nil {
			return "", err
		}
	}
	path := s.goldenPath(u)
	return path, afero.WriteFile(s.fs, path, append(data, '\n'), 0o644)
}

func (s *suite) testUnit(ctx context.Context, u source.Unit) *UnitResult {
	golden := s.goldenPath(u)
	data, err := afero.ReadFile(s.fs, golden)
	if os.IsNotExist(err) {
		return &UnitResult{Unit: u.Name, Status: Skip, Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &UnitResult{Unit: u.Name, Status: Error, Message: fmt.Sprintf("Could not read golden file %s: %v", golden, err)}
	}
	var want report.Unit
	if err := json.Unmarshal(data, &want); err != nil {
		return &UnitResult{Unit: u.Name, Status: Error, Message: fmt.Sprintf("Could not parse golden file %s: %v", golden, err)}
	}

	start := time.Now()
	rep := s.engine.Check(ctx, u)
	got := portable(u, rep)
	res := &UnitResult{Unit: u.Name, Duration: time.Since(start), Got: &got}
	if rep.Status == engine.Cancelled {
		res.Status, res.Message = Skip, "Cancelled"
		return res
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		res.Status, res.Message, res.Diff = Fail, "Report differs from the golden file", diff
		return res
	}
	res.Status, res.Message, res.Got = Pass, fmt.Sprintf("%d violations as recorded", len(got.Violations)), nil
	return res
}

func (s *suite) run(ctx context.Context, units []source.Unit) []*UnitResult {
	tasks := make(chan source.Unit, len(units))
	resultsChan := make(chan *UnitResult, len(units))
	var wg sync.WaitGroup

	for range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range tasks {
				resultsChan <- s.testUnit(ctx, u)
			}
		}()
	}

	// identical units are checked once
	seenHashes := make(map[string]string)
	for _, u := range units {
		unitHash, err := hashUnit(s.fs, u)
		if err != nil {
			resultsChan <- &UnitResult{Unit: u.Name, Status: Error, Message: fmt.Sprintf("Failed to read unit for hashing: %v", err)}
			continue
		}
		if original, seen := seenHashes[unitHash]; seen {
			resultsChan <- &UnitResult{Unit: u.Name, Status: Skip, Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[unitHash] = u.Name
		tasks <- u
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var all []*UnitResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Unit < all[j].Unit })
	return all
}

func (s *suite) printSummary(results []*UnitResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		quiet := r.Status == Pass && !s.verbose
		if !quiet {
			fmt.Fprintln(s.out, "----------------------------------------------------------------------")
			fmt.Fprintf(s.out, "Testing %s%s%s...\n", cCyan, r.Unit, cNone)
		}
		switch r.Status {
		case Pass:
			passed++
			if !quiet {
				fmt.Fprintf(s.out, "  [%sPASS%s] %s (%s)\n", cGreen, cNone, r.Message, r.Duration.Round(time.Microsecond))
			}
		case Fail:
			failed++
			fmt.Fprintf(s.out, "  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Fprint(s.out, formatDiff(r.Diff))
		case Skip:
			skipped++
			fmt.Fprintf(s.out, "  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case Error:
			errored++
			fmt.Fprintf(s.out, "  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
	}
	fmt.Fprintln(s.out, "----------------------------------------------------------------------")
	fmt.Fprintf(s.out, "%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			b.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line + cNone + "\n")
	}
	return b.String()
}

func writeJSONReport(results []*UnitResult, outputJSON, jsonDir string) SuiteResults {
	resultsMap := make(SuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.Unit] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v", cRed, cNone, err)
		return resultsMap
	}
	outputFile := outputJSON
	if jsonDir != "" {
		if err := os.MkdirAll(jsonDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v", cRed, cNone, jsonDir, err)
		}
		outputFile = filepath.Join(jsonDir, outputJSON)
	}
	if err := os.WriteFile(outputFile, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v", cRed, cNone, outputFile, err)
	} else {
		log.Printf("Full test report saved to %s", outputFile)
	}
	return resultsMap
}

func hasFailures(results SuiteResults) bool {
	for _, r := range results {
		if r.Status == Fail || r.Status == Error {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}
