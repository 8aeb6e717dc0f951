package libspec

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/pkg/errors"
)

var (
	htmlTag = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	nonWord = regexp.MustCompile(`[^a-z0-9]+`)

	// Methods in the order operations are listed for one path.
	openAPIMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}
)

type openAPIOperation struct {
	OperationID string   `json:"operationId"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Deprecated  bool     `json:"deprecated"`
	Parameters  []struct {
		Name        string `json:"name"`
		In          string `json:"in"`
		Description string `json:"description"`
		Required    bool   `json:"required"`
		Schema      struct {
			Type string `json:"type"`
		} `json:"schema"`
	} `json:"parameters"`
}

type openAPIFile struct {
	Info struct {
		Title       string `json:"title"`
		Version     string `json:"version"`
		Description string `json:"description"`
	} `json:"info"`
	Paths map[string]map[string]json.RawMessage `json:"paths"`
}

// ParseOpenAPI parses an OpenAPI 3 JSON document. Operations are ordered by path, then method.
func ParseOpenAPI(data []byte) (*Spec, error) {
	var f openAPIFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "openapi json")
	}

	paths := make([]string, 0, len(f.Paths))
	for p := range f.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	converter := md.NewConverter("", true, nil)
	var entries []Entry
	for _, path := range paths {
		item := f.Paths[path]
		for _, method := range openAPIMethods {
			raw, ok := item[method]
			if !ok {
				continue
			}
			var op openAPIOperation
			if err := json.Unmarshal(raw, &op); err != nil {
				return nil, errors.Wrapf(err, "%s %s", strings.ToUpper(method), path)
			}
			description, err := htmlToMarkdown(converter, op.Description)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s description", strings.ToUpper(method), path)
			}
			entry := Entry{
				ID:          op.OperationID,
				Title:       op.Summary,
				Description: description,
				Method:      strings.ToUpper(method),
				Path:        path,
				Tags:        op.Tags,
			}
			if entry.ID == "" {
				entry.ID = operationID(method, path)
			}
			if entry.Title == "" {
				entry.Title = entry.Method + " " + path
			}
			for _, p := range op.Parameters {
				entry.Params = append(entry.Params, Param{
					Name:        p.Name,
					IsOptional:  !p.Required,
					Type:        p.Schema.Type,
					Description: p.Description,
				})
			}
			entries = append(entries, entry)
		}
	}

	info := Info{Title: f.Info.Title, Version: f.Info.Version, Description: f.Info.Description}
	return newSpec(KindAPI, info, entries), nil
}

func htmlToMarkdown(converter *md.Converter, s string) (string, error) {
	if !htmlTag.MatchString(s) {
		return s, nil
	}
	return converter.ConvertString(s)
}

// operationID derives an id for operations that do not declare one, e.g. "get-v1-projects-ref".
func operationID(method, path string) string {
	return strings.Trim(nonWord.ReplaceAllString(method+"-"+strings.ToLower(path), "-"), "-")
}
