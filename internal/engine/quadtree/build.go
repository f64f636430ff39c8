package quadtree

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/quadsphere/internal/engine/terrain"
	"github.com/Faultbox/quadsphere/internal/logger"
)

// Build generates b and its whole subtree. Leaves sample the surface on the
// worker executor, interior blocks resample their children, and every mesh and
// collider is committed on the main executor.
//
// On failure nothing of the subtree stays committed: resources created by
// siblings are released and the children are dropped. Build must not be called
// from inside a main task, since it waits on the main executor.
func (b *Block) Build(ctx context.Context, p *Pipeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.depth >= b.settings.MaxDepth {
		return b.buildLeaf(ctx, p)
	}
	return b.subdivide(ctx, p)
}

func (b *Block) buildLeaf(ctx context.Context, p *Pipeline) error {
	var data *terrain.MeshData
	err := p.Workers.Do(ctx, func() error {
		data = terrain.BuildMesh(b.patch, p.Surface)
		return nil
	})
	if err != nil {
		return fmt.Errorf("block %s: generate mesh: %w", b.name, err)
	}
	return b.commit(ctx, p, data)
}

func (b *Block) subdivide(ctx context.Context, p *Pipeline) error {
	children := make([]*Block, 4)
	for i := range children {
		children[i] = b.child(i)
	}
	b.children = children

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range children {
		g.Go(func() error {
			return c.Build(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		b.discardChildren(ctx, p)
		return err
	}

	var sources [4]*terrain.MeshData
	for i, c := range children {
		sources[i] = c.data
	}

	var data *terrain.MeshData
	err := p.Workers.Do(ctx, func() error {
		var fallbacks int
		data, fallbacks = terrain.Resample(b.patch, p.Surface, sources)
		if fallbacks > 0 {
			p.fallbacks.Add(int64(fallbacks))
			logger.Debug("resampled block with missing child data",
				zap.String("block", b.name),
				zap.Int("fallbacks", fallbacks))
		}
		return nil
	})
	if err != nil {
		b.discardChildren(ctx, p)
		return fmt.Errorf("block %s: resample: %w", b.name, err)
	}

	if err := b.commit(ctx, p, data); err != nil {
		b.discardChildren(ctx, p)
		return err
	}
	return nil
}

// commit creates the mesh and collider on the main context and stores them
// together with data. Either both resources are kept or neither.
func (b *Block) commit(ctx context.Context, p *Pipeline, data *terrain.MeshData) error {
	err := p.Main.Do(ctx, func() error {
		mesh, err := p.Factory.NewMesh(b.name, data)
		if err != nil {
			return fmt.Errorf("create mesh: %w", err)
		}
		collider, err := p.Factory.NewCollider(mesh)
		if err != nil {
			mesh.Release()
			return fmt.Errorf("create collider: %w", err)
		}
		b.data, b.mesh, b.collider = data, mesh, collider
		return nil
	})
	if err != nil {
		return fmt.Errorf("block %s: commit: %w", b.name, err)
	}
	return nil
}

// discardChildren releases everything the children committed and detaches
// them. The release runs even if ctx is cancelled so nothing leaks.
func (b *Block) discardChildren(ctx context.Context, p *Pipeline) {
	children := b.children
	b.children = nil
	if len(children) == 0 {
		return
	}

	err := p.Main.Do(context.WithoutCancel(ctx), func() error {
		for _, c := range children {
			c.Release()
		}
		return nil
	})
	if err != nil {
		logger.Warn("failed to release discarded blocks",
			zap.String("block", b.name),
			zap.Error(err))
	}
}
