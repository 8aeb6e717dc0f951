package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/refbuilder/internal/config"
)

// inputManifest is the hashed description of everything a library build reads.
type inputManifest struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Kind           string            `json:"kind"`
	SectionPath    string            `json:"section_path"`
	Version        string            `json:"version"`
	ExcludedTarget string            `json:"excluded_target"`
	Search         bool              `json:"search"`
	Files          map[string]string `json:"files"` // role -> content hash
}

// contentHash returns the hex sha256 of data.
func contentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// computeInputHash derives a deterministic hash from the library settings and the
// contents of its input files, keyed by role (sections, spec, typedoc).
func computeInputHash(lib config.Library, search bool, files map[string][]byte) (string, error) {
	m := inputManifest{
		ID:             lib.ID,
		Name:           lib.Name,
		Kind:           string(lib.Kind),
		SectionPath:    lib.SectionPath,
		Version:        lib.Version,
		ExcludedTarget: lib.ExcludedTarget,
		Search:         search,
		Files:          make(map[string]string, len(files)),
	}
	for role, data := range files {
		m.Files[role] = contentHash(data)
	}
	// encoding/json sorts map keys, so the encoding is stable.
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal input manifest: %w", err)
	}
	return contentHash(data), nil
}
