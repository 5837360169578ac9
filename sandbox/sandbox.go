package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EscapeError is returned for any candidate path that would leave the
// workspace. Its message names the original candidate and the workspace root,
// never the resolved escaping path; the text flows back into model context
// and has to stay stable.
type EscapeError struct {
	Candidate string
	Root      string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf(
		"Access denied: '%s' is outside the workspace directory. Only files within '%s' can be accessed.",
		e.Candidate, e.Root)
}

// Root is a fully resolved workspace directory. It never changes after
// NewRoot; every path handed to the file tools must resolve to a descendant.
type Root struct {
	path string
}

// NewRoot creates the workspace dir if needed and pins its canonical path.
func NewRoot(dir string) (*Root, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty workspace dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Root{path: resolved}, nil
}

func (r *Root) Path() string {
	return r.path
}

// Resolve maps a caller-supplied path onto a verified absolute path inside
// the workspace. Relative candidates are joined onto the root; absolute
// candidates are untrusted and accepted only when they already live inside
// the workspace. Symlinks are followed before the containment check, so a
// link inside the workspace pointing outside is rejected, not just `..`
// normalization.
func (r *Root) Resolve(candidate string) (string, error) {
	if candidate == "" || strings.IndexByte(candidate, 0) >= 0 {
		return "", &EscapeError{Candidate: candidate, Root: r.path}
	}
	joined := ""
	if filepath.IsAbs(candidate) {
		joined = filepath.Clean(candidate)
	} else {
		joined = filepath.Join(r.path, candidate)
	}
	resolved, err := resolveSymlinks(joined)
	if err != nil {
		return "", err
	}
	if resolved != r.path &&
		!strings.HasPrefix(resolved, r.path+string(filepath.Separator)) {
		return "", &EscapeError{Candidate: candidate, Root: r.path}
	}
	return resolved, nil
}

// maxLinkHops bounds symlink chains during resolution, like EvalSymlinks
// does for existing paths.
const maxLinkHops = 40

// resolveSymlinks canonicalizes path even when its tail does not exist yet
// (write_file creates new files): the deepest existing ancestor is resolved
// through the real filesystem, the not-yet-existing remainder is appended
// back as-is. A dangling symlink is still a link, not a missing segment:
// its target is read and resolution continues there, so a link pointing at
// a not-yet-existing location cannot smuggle the link name past containment
// while the filesystem write lands at the target.
func resolveSymlinks(path string) (string, error) {
	suffix := ""
	cur := path
	for hops := 0; ; hops++ {
		if hops > maxLinkHops {
			return "", fmt.Errorf("too many levels of symbolic links: %s", path)
		}
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if fi, lerr := os.Lstat(cur); lerr == nil && fi.Mode()&os.ModeSymlink != 0 {
			target, rerr := os.Readlink(cur)
			if rerr != nil {
				return "", rerr
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(cur, suffix), nil
		}
		cur = parent
	}
}
