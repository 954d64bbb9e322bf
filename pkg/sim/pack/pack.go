// Package pack scans a resource-pack directory for textures.
//
// A pack is laid out as assets/<namespace>/textures/<path>.png. Each such file
// becomes the resource id "<namespace>:textures/<path>.png". Block textures
// (assets/<namespace>/textures/blocks/<name>.png) also register the block
// "tile.<name>".
package pack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
)

// TextureExt is the only file extension treated as a texture.
const TextureExt = ".png"

// ErrNotDir is returned when the pack root is not a directory.
var ErrNotDir = errors.New("resource pack root is not a directory")

// Index is the result of one pack scan.
type Index struct {
	Root     string
	Textures []host.ResourceID
	Blocks   []string
	Skipped  int
}

// Has reports whether id is in the index.
func (ix *Index) Has(id host.ResourceID) bool {
	i := sort.Search(len(ix.Textures), func(i int) bool { return ix.Textures[i] >= id })
	return i < len(ix.Textures) && ix.Textures[i] == id
}

// Scan walks root and indexes every texture under its assets directory.
// Unreadable entries are counted in Skipped, not returned as errors.
func Scan(ctx context.Context, root string) (*Index, error) {
	abs, err := validateRoot(root)
	if err != nil {
		return nil, fmt.Errorf("scanning resource pack %s: %w", root, err)
	}

	assets := filepath.Join(abs, "assets")
	ix := &Index{Root: abs}
	if _, err := os.Stat(assets); errors.Is(err, fs.ErrNotExist) {
		return ix, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}

	walkErr := fastwalk.Walk(&conf, assets, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			mu.Lock()
			ix.Skipped++
			mu.Unlock()
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		id, block, ok := resourceID(assets, path)
		if !ok {
			return nil
		}

		mu.Lock()
		ix.Textures = append(ix.Textures, id)
		if block != "" {
			ix.Blocks = append(ix.Blocks, block)
		}
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scanning resource pack %s: %w", root, walkErr)
	}

	sort.Slice(ix.Textures, func(i, j int) bool { return ix.Textures[i] < ix.Textures[j] })
	sort.Strings(ix.Blocks)
	return ix, nil
}

// resourceID maps a file under assets to its id and, for block textures, the
// unlocalized block name.
func resourceID(assets, path string) (host.ResourceID, string, bool) {
	rel, err := filepath.Rel(assets, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 || parts[1] != "textures" {
		return "", "", false
	}
	if !strings.EqualFold(filepath.Ext(rel), TextureExt) {
		return "", "", false
	}

	id := host.ResourceID(parts[0] + ":" + strings.Join(parts[1:], "/"))

	var block string
	if len(parts) == 4 && parts[2] == "blocks" {
		block = "tile." + strings.TrimSuffix(parts[3], filepath.Ext(parts[3]))
	}
	return id, block, true
}

func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", ErrNotDir
	}
	return abs, nil
}
