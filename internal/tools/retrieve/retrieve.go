// Package retrieve provides the filesystem keyword search tool for agents.
package retrieve

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/conductor/internal/agent"
)

const toolName = "retrieve"

// maxResultsLimit caps how many matches one call may return regardless of
// the requested max_results.
const maxResultsLimit = 20

var inputSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Search query."
    },
    "max_results": {
      "type": "integer",
      "description": "Maximum matches to return (default: 5, max: 20)"
    }
  },
  "required": ["query"]
}`)

var compiledSchema = jsonschema.MustCompileString("retrieve.json", string(inputSchema))

// Config controls which files the tool searches and how results are shaped.
type Config struct {
	// SearchPaths are files or directories to search.
	// Default: ["documents", "README.md"]
	SearchPaths []string

	// FileGlobs select files under directory search paths. A leading **/
	// matches at any depth; everything else matches relative to the root.
	// Default: ["**/*.md", "**/*.txt"]
	FileGlobs []string

	// MaxResults is the default number of matches returned.
	// Default: 5
	MaxResults int

	// MaxSnippetChars truncates matched lines to this many characters.
	// Default: 200
	MaxSnippetChars int

	// MaxFileSizeKB skips files larger than this.
	// Default: 256
	MaxFileSizeKB int
}

// DefaultConfig returns the search defaults.
func DefaultConfig() Config {
	return Config{
		SearchPaths:     []string{"documents", "README.md"},
		FileGlobs:       []string{"**/*.md", "**/*.txt"},
		MaxResults:      5,
		MaxSnippetChars: 200,
		MaxFileSizeKB:   256,
	}
}

// Tool searches configured paths for a query string and returns matching
// snippets, one per line hit.
type Tool struct {
	config Config
}

var _ agent.Tool = (*Tool)(nil)

// New creates the retrieve tool, applying defaults for unset values.
func New(cfg Config) *Tool {
	config := DefaultConfig()
	if len(cfg.SearchPaths) > 0 {
		config.SearchPaths = cfg.SearchPaths
	}
	if len(cfg.FileGlobs) > 0 {
		config.FileGlobs = cfg.FileGlobs
	}
	if cfg.MaxResults > 0 {
		config.MaxResults = cfg.MaxResults
	}
	if cfg.MaxSnippetChars > 0 {
		config.MaxSnippetChars = cfg.MaxSnippetChars
	}
	if cfg.MaxFileSizeKB > 0 {
		config.MaxFileSizeKB = cfg.MaxFileSizeKB
	}
	return &Tool{config: config}
}

// Spec describes the tool. No scopes, so every caller may use it.
func (t *Tool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        toolName,
		Description: "Search local text files for a query and return matching snippets.",
		InputSchema: inputSchema,
	}
}

type match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

type searchResult struct {
	Query   string  `json:"query"`
	Matches []match `json:"matches"`
}

// Run validates the arguments and scans the configured files line by line.
// Unreadable paths are skipped; only context cancellation is an error.
func (t *Tool) Run(ctx context.Context, args map[string]any) (agent.ToolResult, error) {
	if err := compiledSchema.Validate(map[string]any(args)); err != nil {
		return agent.ToolFailure(toolName, "invalid_arguments"), nil
	}

	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return agent.ToolFailure(toolName, "missing_query"), nil
	}

	limit := intArg(args, "max_results")
	if limit <= 0 {
		limit = t.config.MaxResults
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxResultsLimit {
		limit = maxResultsLimit
	}

	matches := make([]match, 0, limit)
	for _, file := range t.collectFiles() {
		if err := ctx.Err(); err != nil {
			return agent.ToolResult{}, err
		}
		matches = t.scanFile(file, query, matches, limit)
		if len(matches) >= limit {
			break
		}
	}

	return agent.ToolSuccess(toolName, searchResult{Query: query, Matches: matches}), nil
}

// collectFiles expands the search paths into candidate files. Files listed
// directly are searched as-is; directories are walked against FileGlobs.
func (t *Tool) collectFiles() []string {
	maxBytes := int64(t.config.MaxFileSizeKB) * 1024
	var files []string

	for _, root := range t.config.SearchPaths {
		root = expandHome(root)
		info, err := os.Stat(root)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if info.Size() <= maxBytes {
				files = append(files, root)
			}
			continue
		}

		filepath.WalkDir(root, func(p string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if entry.IsDir() {
				if p != root && shouldSkipDir(entry.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return nil
			}
			if !t.matchesGlobs(rel) {
				return nil
			}
			fi, err := entry.Info()
			if err != nil || fi.Size() > maxBytes {
				return nil
			}
			files = append(files, p)
			return nil
		})
	}
	return files
}

func (t *Tool) scanFile(file, query string, matches []match, limit int) []match {
	data, err := os.ReadFile(file)
	if err != nil {
		return matches
	}

	queryLower := strings.ToLower(query)
	for i, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(strings.ToLower(line), queryLower) {
			continue
		}
		matches = append(matches, match{Path: file, Line: i + 1, Text: t.snippet(line)})
		if len(matches) >= limit {
			break
		}
	}
	return matches
}

func (t *Tool) snippet(line string) string {
	runes := []rune(strings.TrimSpace(line))
	if len(runes) > t.config.MaxSnippetChars {
		return strings.TrimRightFunc(string(runes[:t.config.MaxSnippetChars]), unicode.IsSpace)
	}
	return string(runes)
}

func (t *Tool) matchesGlobs(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range t.config.FileGlobs {
		if matchesPattern(pattern, rel) {
			return true
		}
	}
	return false
}

// matchesPattern implements the small glob dialect the config uses: a
// leading **/ matches the remainder at any directory depth; other patterns
// are plain path.Match patterns against the root-relative path.
func matchesPattern(pattern, rel string) bool {
	if rest, found := strings.CutPrefix(pattern, "**/"); found {
		segs := strings.Split(rel, "/")
		for i := range segs {
			if ok, err := path.Match(rest, strings.Join(segs[i:], "/")); err == nil && ok {
				return true
			}
		}
		return false
	}
	ok, err := path.Match(pattern, rel)
	return err == nil && ok
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", "node_modules", "vendor", "__pycache__":
		return true
	}
	return strings.HasPrefix(name, ".")
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}
