package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreScope is one .gitignore file and the directory it governs,
// relative to the scan root ("" for the root itself).
type ignoreScope struct {
	dir     string
	matcher *gitignore.GitIgnore
}

// walker lists the regular files under a root in lexical order.
type walker struct {
	root      string
	exclude   []string
	gitignore bool
	scopes    []ignoreScope
}

func newWalker(root string, exclude []string, useGitignore bool) (*walker, error) {
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, &fs.PathError{Op: "exclude", Path: p, Err: doublestar.ErrBadPattern}
		}
	}
	return &walker{root: root, exclude: exclude, gitignore: useGitignore}, nil
}

// files returns absolute paths. Entries that cannot be read are skipped.
func (w *walker) files(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				w.loadIgnore(path, "")
				return nil
			}
			if w.skip(rel, true) {
				return filepath.SkipDir
			}
			w.loadIgnore(path, rel)
			return nil
		}
		if !d.Type().IsRegular() || w.skip(rel, false) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *walker) skip(rel string, dir bool) bool {
	if w.gitignore && dir && (rel == ".git" || strings.HasSuffix(rel, "/.git")) {
		return true
	}
	for _, p := range w.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return w.ignored(rel, dir)
}

func (w *walker) loadIgnore(abs, rel string) {
	if !w.gitignore {
		return
	}
	m, err := gitignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore"))
	if err != nil {
		return
	}
	w.scopes = append(w.scopes, ignoreScope{dir: rel, matcher: m})
}

// ignored applies every .gitignore whose directory contains rel, with the
// path made relative to that directory.
func (w *walker) ignored(rel string, dir bool) bool {
	for _, s := range w.scopes {
		sub := rel
		if s.dir != "" {
			if !strings.HasPrefix(rel, s.dir+"/") {
				continue
			}
			sub = strings.TrimPrefix(rel, s.dir+"/")
		}
		if s.matcher.MatchesPath(sub) {
			return true
		}
		if dir && s.matcher.MatchesPath(sub+"/") {
			return true
		}
	}
	return false
}
