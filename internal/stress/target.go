package stress

import (
	"context"
	"fmt"

	"github.com/yndnr/refmap-go/pkg/refmap"
)

// handle is the part of a refmap handle the workload touches.
type handle interface {
	Value() int64
	Clone() handle
	Release()
}

// h64 adapts *refmap.Handle to the handle interface; Clone needs the
// wrapper because the concrete method returns the concrete type.
type h64 struct {
	*refmap.Handle[string, int64]
}

func (h h64) Clone() handle {
	return h64{h.Handle.Clone()}
}

// target presents every map variant behind one surface so the runner
// does not care which kind it is driving. The blocking variants ignore
// the context; the cooperative ones pass it through.
type target interface {
	Insert(ctx context.Context, key string, value int64) (handle, error)
	Get(ctx context.Context, key string) (handle, bool, error)
	Stats() refmap.Stats
}

// newTarget builds the map variant named by cfg.
func newTarget(cfg MapConfig) (target, error) {
	switch cfg.Kind {
	case KindOrdered:
		return orderedTarget{m: refmap.NewOrdered[string, int64]()}, nil
	case KindHashed:
		return hashedTarget{m: refmap.NewHashed[string, int64]()}, nil
	case KindOrderedCtx:
		return orderedCtxTarget{m: refmap.NewOrderedCtx[string, int64]()}, nil
	case KindHashedCtx:
		return hashedCtxTarget{m: refmap.NewHashedCtx[string, int64]()}, nil
	case KindSharded:
		return shardedTarget{m: refmap.NewSharded[int64](refmap.WithShardCount[int64](cfg.Shards))}, nil
	default:
		return nil, fmt.Errorf("newTarget: unknown kind %q", cfg.Kind)
	}
}

type orderedTarget struct {
	m *refmap.Ordered[string, int64]
}

func (t orderedTarget) Insert(_ context.Context, key string, value int64) (handle, error) {
	return h64{t.m.Insert(key, value)}, nil
}

func (t orderedTarget) Get(_ context.Context, key string) (handle, bool, error) {
	h, ok := t.m.Get(key)
	if !ok {
		return nil, false, nil
	}
	return h64{h}, true, nil
}

func (t orderedTarget) Stats() refmap.Stats { return t.m.Stats() }

type hashedTarget struct {
	m *refmap.Hashed[string, int64]
}

func (t hashedTarget) Insert(_ context.Context, key string, value int64) (handle, error) {
	return h64{t.m.Insert(key, value)}, nil
}

func (t hashedTarget) Get(_ context.Context, key string) (handle, bool, error) {
	h, ok := t.m.Get(key)
	if !ok {
		return nil, false, nil
	}
	return h64{h}, true, nil
}

func (t hashedTarget) Stats() refmap.Stats { return t.m.Stats() }

type orderedCtxTarget struct {
	m *refmap.OrderedCtx[string, int64]
}

func (t orderedCtxTarget) Insert(ctx context.Context, key string, value int64) (handle, error) {
	h, err := t.m.Insert(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return h64{h}, nil
}

func (t orderedCtxTarget) Get(ctx context.Context, key string) (handle, bool, error) {
	h, ok, err := t.m.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return h64{h}, true, nil
}

func (t orderedCtxTarget) Stats() refmap.Stats { return t.m.Stats() }

type hashedCtxTarget struct {
	m *refmap.HashedCtx[string, int64]
}

func (t hashedCtxTarget) Insert(ctx context.Context, key string, value int64) (handle, error) {
	h, err := t.m.Insert(ctx, key, value)
	if err != nil {
		return nil, err
	}
	return h64{h}, nil
}

func (t hashedCtxTarget) Get(ctx context.Context, key string) (handle, bool, error) {
	h, ok, err := t.m.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return h64{h}, true, nil
}

func (t hashedCtxTarget) Stats() refmap.Stats { return t.m.Stats() }

type shardedTarget struct {
	m *refmap.Sharded[int64]
}

func (t shardedTarget) Insert(_ context.Context, key string, value int64) (handle, error) {
	return h64{t.m.Insert(key, value)}, nil
}

func (t shardedTarget) Get(_ context.Context, key string) (handle, bool, error) {
	h, ok := t.m.Get(key)
	if !ok {
		return nil, false, nil
	}
	return h64{h}, true, nil
}

func (t shardedTarget) Stats() refmap.Stats { return t.m.Stats() }
