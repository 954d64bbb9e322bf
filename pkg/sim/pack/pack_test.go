package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "assets/minecraft/textures/blocks/stone.png")
	writeFile(t, root, "assets/minecraft/textures/blocks/dirt.png")
	writeFile(t, root, "assets/minecraft/textures/items/apple.png")
	writeFile(t, root, "assets/mymod/textures/blocks/ore.PNG")
	writeFile(t, root, "assets/minecraft/textures/blocks/stone.png.mcmeta")
	writeFile(t, root, "assets/minecraft/models/block/stone.json")
	writeFile(t, root, "pack.mcmeta")

	ix, err := Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []host.ResourceID{
		"minecraft:textures/blocks/dirt.png",
		"minecraft:textures/blocks/stone.png",
		"minecraft:textures/items/apple.png",
		"mymod:textures/blocks/ore.PNG",
	}, ix.Textures)
	assert.Equal(t, []string{"tile.dirt", "tile.ore", "tile.stone"}, ix.Blocks)
	assert.True(t, ix.Has("minecraft:textures/items/apple.png"))
	assert.False(t, ix.Has("minecraft:textures/items/pear.png"))
}

func TestScan_NoAssets(t *testing.T) {
	ix, err := Scan(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ix.Textures)
	assert.Empty(t, ix.Blocks)
}

func TestScan_InvalidRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "pack.zip")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Scan(context.Background(), file)
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = Scan(context.Background(), filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScan_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "assets/minecraft/textures/blocks/stone.png")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
