package cmsmock

import (
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// SeedFile seeds a list path from a spec of the form path=file.json, where the
// file holds a JSON array of row objects. It returns the path and row count.
func SeedFile(s *Server, spec string) (string, int, error) {
	path, file, ok := strings.Cut(spec, "=")
	path, file = strings.TrimSpace(path), strings.TrimSpace(file)
	if !ok || path == "" || file == "" {
		return "", 0, fmt.Errorf("seed %q: want path=file.json", spec)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", 0, fmt.Errorf("seed %q: %w", spec, err)
	}
	if !gjson.ValidBytes(data) {
		return "", 0, fmt.Errorf("seed %q: %s is not valid JSON", spec, file)
	}
	arr := gjson.ParseBytes(data)
	if !arr.IsArray() {
		return "", 0, fmt.Errorf("seed %q: %s must hold a JSON array", spec, file)
	}

	var rows []string
	for _, row := range arr.Array() {
		if !row.IsObject() {
			return "", 0, fmt.Errorf("seed %q: every row must be an object", spec)
		}
		rows = append(rows, row.Raw)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	s.Seed(path, 0, rows...)
	return path, len(rows), nil
}
