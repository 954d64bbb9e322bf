package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockPos_PackRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pos  BlockPos
	}{
		{"origin", BlockPos{0, 0, 0}},
		{"positive", BlockPos{120, 64, 3000}},
		{"negative", BlockPos{-120, -5, -3000}},
		{"limits", BlockPos{1<<25 - 1, 1<<11 - 1, -(1 << 25)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pos, UnpackPos(tt.pos.Pack()))
		})
	}
}

func TestBlockPos_PackDistinct(t *testing.T) {
	seen := make(map[int64]BlockPos)
	for x := -2; x <= 2; x++ {
		for y := -2; y <= 2; y++ {
			for z := -2; z <= 2; z++ {
				p := BlockPos{x, y, z}
				k := p.Pack()
				if prev, ok := seen[k]; ok {
					t.Fatalf("%v and %v share key %d", prev, p, k)
				}
				seen[k] = p
			}
		}
	}
}

func TestFloorPos(t *testing.T) {
	assert.Equal(t, BlockPos{1, 64, -2}, FloorPos(Vec3{1.9, 64.0, -1.1}))
	assert.Equal(t, BlockPos{-1, 0, 0}, FloorPos(Vec3{-0.5, 0.2, 0.99}))
}

func TestBlockModelName(t *testing.T) {
	assert.Equal(t, "stone", BlockModelName("tile.stone"))
	assert.Equal(t, "air", BlockModelName("air"))
}
