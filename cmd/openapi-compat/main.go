// Command openapi-compat guards the public API against breaking changes. It compares a
// committed baseline against the swagger document compiled into the server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"linkshelf/docs"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":    {},
	"put":    {},
	"post":   {},
	"delete": {},
	"patch":  {},
}

// apiSurface maps path -> method -> documented response codes.
type apiSurface map[string]map[string]map[string]struct{}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("openapi-compat", flag.ContinueOnError)
	basePath := fs.String("base", "", "baseline swagger document (json or yaml)")
	revisionPath := fs.String("revision", "", "revision document; defaults to the compiled-in docs")
	writePath := fs.String("write", "", "write the compiled-in docs to this path and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current := []byte(docs.SwaggerInfo.ReadDoc())
	if *writePath != "" {
		return os.WriteFile(*writePath, current, 0o644)
	}
	if strings.TrimSpace(*basePath) == "" {
		return errors.New("usage: openapi-compat -base <path> [-revision <path>] | -write <path>")
	}

	base, err := loadFile(*basePath)
	if err != nil {
		return fmt.Errorf("failed to load base document: %w", err)
	}
	revisionRaw := current
	if *revisionPath != "" {
		// #nosec G304: path comes from CLI flags in a dev tool
		if revisionRaw, err = os.ReadFile(*revisionPath); err != nil {
			return fmt.Errorf("failed to load revision document: %w", err)
		}
	}
	revision, err := parseSurface(revisionRaw)
	if err != nil {
		return fmt.Errorf("failed to parse revision document: %w", err)
	}

	if issues := compare(base, revision); len(issues) > 0 {
		return fmt.Errorf("backward compatibility check failed:\n- %s", strings.Join(issues, "\n- "))
	}
	fmt.Fprintln(out, "openapi compatibility check passed")
	return nil
}

func loadFile(path string) (apiSurface, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseSurface(raw)
}

// parseSurface reads a swagger document. JSON is valid YAML, so one decoder covers both.
func parseSurface(raw []byte) (apiSurface, error) {
	var doc struct {
		Paths map[string]map[string]struct {
			Responses map[string]any `yaml:"responses"`
		} `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	surface := make(apiSurface, len(doc.Paths))
	for path, methods := range doc.Paths {
		ops := make(map[string]map[string]struct{})
		for method, op := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[m]; !ok {
				continue
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				codes[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
			}
			ops[m] = codes
		}
		if len(ops) > 0 {
			surface[path] = ops
		}
	}
	return surface, nil
}

func compare(base, revision apiSurface) []string {
	var issues []string
	for path, baseOps := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}
		for method, baseCodes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseCodes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
