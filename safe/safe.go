// Package safe holds the input guards shared by the HTTP and MCP surfaces:
// path confinement, index name validation and bounded reads.
package safe

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// MaxNameLen bounds index names.
const MaxNameLen = 128

// ErrPathTraversal is returned when a path escapes its root.
var ErrPathTraversal = errors.New("safe: path escapes root")

// ErrTooLarge is returned by LimitedReadAll when the input exceeds the limit.
var ErrTooLarge = errors.New("safe: input too large")

// ConfinePath resolves p against root and checks the result stays inside
// root. Relative paths are joined to root; absolute paths must already be
// under it. An empty root disables confinement and returns p unchanged.
func ConfinePath(root, p string) (string, error) {
	if root == "" {
		return p, nil
	}
	root = filepath.Clean(root)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	if p != root && !strings.HasPrefix(p, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, p)
	}
	return p, nil
}

// ValidateName rejects index names unsuitable for URL path segments.
// Allows ASCII letters, digits, underscore, hyphen and dot.
func ValidateName(s string) error {
	if s == "" {
		return fmt.Errorf("safe: name must not be empty")
	}
	if len(s) > MaxNameLen {
		return fmt.Errorf("safe: name too long (max %d)", MaxNameLen)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("safe: invalid name %q", s)
	}
	for _, r := range s {
		if !isNameChar(r) {
			return fmt.Errorf("safe: invalid character %q in name", r)
		}
	}
	return nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

func isNameChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}
