//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode"
)

// pkgStats counts Go lines of one package directory.
type pkgStats struct {
	Package string `json:"package"`
	Prod    int    `json:"prod"`
	Test    int    `json:"test"`
}

// Stats prints Go lines of code per package and documentation word
// counts. Pass --json for a single machine-readable record.
func Stats() error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print one JSON record")
	parseTargetFlags(fs)

	pkgs, err := countPackages(".")
	if err != nil {
		return err
	}
	docs := map[string]int{}
	for _, name := range []string{"README.md", "DESIGN.md"} {
		if n, err := countWordsInFile(name); err == nil {
			docs[name] = n
		}
	}

	if *asJSON {
		line, err := json.Marshal(map[string]any{"packages": pkgs, "doc_words": docs})
		if err != nil {
			return err
		}
		fmt.Println(string(line))
		return nil
	}

	var prod, test int
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tPROD\tTEST")
	for _, p := range pkgs {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Package, p.Prod, p.Test)
		prod += p.Prod
		test += p.Test
	}
	fmt.Fprintf(w, "total\t%d\t%d\n", prod, test)
	w.Flush()
	for name, n := range docs {
		fmt.Printf("Words (%s): %d\n", name, n)
	}
	return nil
}

// countPackages walks root and groups Go line counts by directory,
// skipping build tooling and the reference material under _examples.
func countPackages(root string) ([]pkgStats, error) {
	byDir := map[string]*pkgStats{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case "vendor", ".git", binaryDir, "magefiles", "_examples":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		s := byDir[dir]
		if s == nil {
			s = &pkgStats{Package: dir}
			byDir[dir] = s
		}
		if strings.HasSuffix(path, "_test.go") {
			s.Test += n
		} else {
			s.Prod += n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]pkgStats, 0, len(byDir))
	for _, s := range byDir {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package < out[j].Package })
	return out, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func countWordsInFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.FieldsFunc(string(data), unicode.IsSpace)), nil
}
