package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// focalConfigFilename is the project-local config file spec §6 names.
const focalConfigFilename = ".focal.kdl"

// Load reads .focal.kdl from projectRoot, if present, and returns the parsed
// overrides. A missing file is not an error: it reports (zero Config,
// false, nil) so the caller falls back to Default().
func Load(projectRoot string) (Config, bool, error) {
	path := filepath.Join(projectRoot, focalConfigFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}
		return Config{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := parseKDL(string(data))
	if err != nil {
		return Config{}, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, true, nil
}

// parseKDL walks the document for five top-level nodes: exclude,
// max-file-bytes, watch-debounce-ms, log-level, http-port. Unrecognized nodes
// are ignored, matching the teacher's tolerant KDL parsing style.
func parseKDL(content string) (Config, error) {
	var cfg Config

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return cfg, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "exclude":
			cfg.Exclude = collectStringArgs(n)
		case "max-file-bytes":
			if v, ok := firstIntArg(n); ok {
				cfg.MaxFileBytes = int64(v)
			}
		case "watch-debounce-ms":
			if v, ok := firstIntArg(n); ok {
				cfg.WatchDebounceMs = v
			}
		case "log-level":
			if s, ok := firstStringArg(n); ok {
				cfg.LogLevel = s
			}
		case "http-port":
			if v, ok := firstIntArg(n); ok {
				cfg.HTTPPort = v
			}
		}
	}
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

// collectStringArgs reads string values either from a node's inline
// arguments (`exclude "**/vendor/**" "**/dist/**"`) or from its children's
// names (block form: `exclude { "**/vendor/**"; "**/dist/**" }`), mirroring
// the teacher's dual-format tolerance.
func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
