// Package deps extracts dependency manifests and checks them against the
// OSV vulnerability database.
package deps

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Package is a single declared dependency.
type Package struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Ecosystem string `json:"ecosystem"` // PyPI, npm, Go
	Source    string `json:"source"`    // manifest path, relative to root
}

// ignoredScanDirs are skipped while looking for manifests.
var ignoredScanDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true,
	"__pycache__": true, ".venv": true, "venv": true,
	"dist": true, "build": true, "target": true,
}

// versionSeps split python requirement specifiers, longest first.
var versionSeps = []string{"==", ">=", "<=", "~=", "!=", ">", "<"}

// Scan walks the tree and extracts dependencies from recognized manifests:
// requirements.txt, package.json and go.mod.
func Scan(root string) ([]Package, error) {
	var packages []Package

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || ignoredScanDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		switch name {
		case "requirements.txt":
			packages = append(packages, parseRequirements(path, rel)...)
		case "package.json":
			packages = append(packages, parsePackageJSON(path, rel)...)
		case "go.mod":
			packages = append(packages, parseGoMod(path, rel)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return packages, nil
}

func parseRequirements(path, rel string) []Package {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var packages []Package
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name, version := line, ""
		for _, sep := range versionSeps {
			if idx := strings.Index(line, sep); idx != -1 {
				name = strings.TrimSpace(line[:idx])
				version = strings.TrimSpace(line[idx+len(sep):])
				break
			}
		}
		// Strip extras like package[extra]
		if idx := strings.IndexByte(name, '['); idx != -1 {
			name = name[:idx]
		}
		if name != "" {
			packages = append(packages, Package{Name: name, Version: version, Ecosystem: "PyPI", Source: rel})
		}
	}
	return packages
}

func parsePackageJSON(path, rel string) []Package {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil
	}

	var packages []Package
	for _, deps := range []map[string]string{manifest.Dependencies, manifest.DevDependencies} {
		for name, version := range deps {
			packages = append(packages, Package{
				Name:      name,
				Version:   strings.TrimLeft(version, "^~>=<"),
				Ecosystem: "npm",
				Source:    rel,
			})
		}
	}
	return packages
}

func parseGoMod(path, rel string) []Package {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var packages []Package
	inRequire := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "require ("):
			inRequire = true
			continue
		case inRequire && line == ")":
			inRequire = false
			continue
		}

		entry := ""
		if inRequire {
			entry = line
		} else if rest, ok := strings.CutPrefix(line, "require "); ok && !strings.HasPrefix(rest, "(") {
			entry = rest
		}
		if entry == "" || strings.HasPrefix(entry, "//") {
			continue
		}

		fields := strings.Fields(entry)
		if len(fields) < 2 {
			continue
		}
		packages = append(packages, Package{
			Name:      fields[0],
			Version:   strings.TrimPrefix(fields[1], "v"),
			Ecosystem: "Go",
			Source:    rel,
		})
	}
	return packages
}
