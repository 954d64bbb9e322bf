// Package loader warms framepilot's model and texture caches on the
// resource-load pool and re-warms textures whenever the host reloads its
// resources.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/framepilot/pkg/framepilot/cache"
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
)

// Submitter queues fire-and-forget pool work.
type Submitter interface {
	Submit(name pool.Name, task pool.Task)
}

// Loader preloads resources into a cache.Layer.
type Loader struct {
	resources host.Resources
	pools     Submitter
	caches    *cache.Layer
	curated   []host.ResourceID
	logger    *logging.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// New returns a loader for the given curated texture set.
func New(resources host.Resources, pools Submitter, caches *cache.Layer, curated []host.ResourceID) *Loader {
	return &Loader{
		resources: resources,
		pools:     pools,
		caches:    caches,
		curated:   append([]host.ResourceID(nil), curated...),
		logger:    logging.Get("loader"),
	}
}

// Curated returns the texture ids preloaded on startup and reload.
func (l *Loader) Curated() []host.ResourceID {
	return append([]host.ResourceID(nil), l.curated...)
}

// PreloadModels submits one task that caches the inventory model of every
// registered block.
func (l *Loader) PreloadModels() {
	l.pools.Submit(pool.ResourceLoad, func(ctx context.Context) {
		names, err := l.resources.ModelNames()
		if err != nil {
			l.logger.Warn("listing block models failed", "err", err)
			return
		}

		loaded := 0
		for _, unlocalized := range names {
			if ctx.Err() != nil {
				return
			}

			desc := host.ModelDescriptor{
				Name:    host.BlockModelName(unlocalized),
				Variant: host.InventoryVariant,
			}
			if _, err := l.caches.Models.GetOrLoad(desc.Name, func() (host.ModelDescriptor, error) {
				return desc, nil
			}); err == nil {
				loaded++
			}
		}

		l.logger.Debug("block models preloaded", "count", loaded)
	})
}

// PreloadTextures submits one task per id that loads and caches the texture.
// Failed loads are logged and retried on the next preload.
func (l *Loader) PreloadTextures(ids []host.ResourceID) {
	for _, id := range ids {
		l.pools.Submit(pool.ResourceLoad, func(ctx context.Context) {
			if ctx.Err() != nil {
				return
			}
			if _, err := l.loadTexture(id); err != nil {
				l.logger.Warn("texture preload failed", "id", id, "err", err)
			}
		})
	}
}

func (l *Loader) loadTexture(id host.ResourceID) (host.TextureHandle, error) {
	return l.caches.Textures.GetOrLoad(id, func() (host.TextureHandle, error) {
		return l.resources.LoadTexture(id)
	})
}

// OnResourcesReloaded re-preloads the curated textures.
func (l *Loader) OnResourcesReloaded() {
	l.logger.Debug("resources reloaded", "textures", len(l.curated))
	l.PreloadTextures(l.curated)
}

// Hook subscribes OnResourcesReloaded to the host's reload notification. A
// host without one is logged and tolerated. Hooking twice is a no-op.
func (l *Loader) Hook() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unsubscribe != nil {
		return nil
	}

	unsubscribe, err := l.resources.SubscribeReload(l.OnResourcesReloaded)
	if errors.Is(err, host.ErrUnsupported) {
		l.logger.Info("host has no reload notification; textures warm on startup only")
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscribing to resource reloads: %w", err)
	}

	l.unsubscribe = unsubscribe
	return nil
}

// Unhook removes the reload subscription, if any.
func (l *Loader) Unhook() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// WarmUp resolves the first curated texture on the startup-init pool so the
// host's texture path is exercised before the first frame.
func (l *Loader) WarmUp() {
	if len(l.curated) == 0 {
		return
	}
	id := l.curated[0]

	l.pools.Submit(pool.StartupInit, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		if _, err := l.loadTexture(id); err != nil {
			l.logger.Warn("startup texture warm-up failed", "id", id, "err", err)
			return
		}
		l.logger.Debug("startup texture warm-up done", "id", id)
	})
}
