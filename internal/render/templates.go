package render

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"deadticker/internal/util"
)

var templateExt = regexp.MustCompile(`(?i)\.(png|jpg|jpeg)$`)

// Templates lists background images in a directory once and hands out a
// stable pick per subject. A missing directory behaves like an empty one.
type Templates struct {
	dir   string
	once  sync.Once
	paths []string
}

func NewTemplates(dir string) *Templates { return &Templates{dir: dir} }

// List returns the sorted template paths, reading the directory on first use.
func (t *Templates) List() []string {
	t.once.Do(func() {
		entries, err := os.ReadDir(t.dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() || !templateExt.MatchString(e.Name()) {
				continue
			}
			t.paths = append(t.paths, filepath.Join(t.dir, e.Name()))
		}
		sort.Strings(t.paths)
	})
	return t.paths
}

// Pick returns the template for subject, or "" when there are none.
func (t *Templates) Pick(subject string) string {
	paths := t.List()
	if len(paths) == 0 {
		return ""
	}
	return paths[util.Index(util.Hash(subject), len(paths))]
}
