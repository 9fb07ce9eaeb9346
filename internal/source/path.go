package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blagoySimandov/rowenrich/internal/models"
)

// Confine resolves path inside root and rejects anything that lands outside
// it, following symlinks of the parts that already exist. Relative paths are
// taken relative to root. The returned path is absolute.
func Confine(root, path string) (string, error) {
	forbidden := func(err error) error {
		return &models.Error{Kind: models.ErrPathForbidden, Op: fmt.Sprintf("access %q", path), Err: err}
	}
	if root == "" {
		return "", forbidden(errors.New("no data directory configured"))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", forbidden(err)
	}
	absRoot = resolveSymlinks(absRoot)

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = resolveSymlinks(filepath.Clean(target))

	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", forbidden(errors.New("outside the data directory"))
	}
	return target, nil
}

// resolveSymlinks evaluates the longest existing prefix of p and re-attaches
// the rest, so paths of files about to be created resolve too.
func resolveSymlinks(p string) string {
	var tail []string
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}
