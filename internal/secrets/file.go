package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// FileProvider reads mounted secret files.
//
//	file:/run/secrets/api_key          whole file, surrounding space trimmed
//	file:/etc/sherpa/secrets.json#key  one field of a flat JSON object
type FileProvider struct{}

func (FileProvider) Name() string { return "file" }

func (FileProvider) Get(_ context.Context, ref string) (string, error) {
	path, field, keyed := strings.Cut(ref, "#")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !keyed {
		v := strings.TrimSpace(string(data))
		if v == "" {
			return "", fmt.Errorf("%w: %s is empty", ErrNotFound, path)
		}
		return v, nil
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}
	v, ok := values[field]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s has no %q", ErrNotFound, path, field)
	}
	return v, nil
}
