package commerce

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jacentio/storefront/blob"
)

// blobOps wraps a BlobStore with the upload, signing and cleanup policies
// shared by the services.
type blobOps struct {
	store BlobStore
	opts  Options
}

// upload writes objs under prefix concurrently and returns their keys in
// input order. On failure the objects already written are removed.
func (b blobOps) upload(ctx context.Context, prefix string, objs []blob.Object) ([]string, error) {
	if len(objs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.BlobTimeout)
	defer cancel()

	keys := make([]string, len(objs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.BlobConcurrency)
	for i, obj := range objs {
		i, obj := i, obj
		g.Go(func() error {
			key, err := b.store.Put(gctx, prefix, obj)
			if err != nil {
				return err
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.discard(ctx, "upload", compact(keys))
		return nil, ServerError("failed to upload image", err)
	}
	return keys, nil
}

// sign returns a signed URL for every key, in order.
func (b blobOps) sign(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.BlobConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			url, err := b.store.SignedURL(gctx, key)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ServerError("failed to sign image url", err)
	}
	return urls, nil
}

func (b blobOps) storeView(ctx context.Context, s *Store) (*StoreView, error) {
	view := &StoreView{Store: s}
	if s.LogoKey == "" {
		return view, nil
	}
	urls, err := b.sign(ctx, []string{s.LogoKey})
	if err != nil {
		return nil, err
	}
	view.LogoURL = urls[0]
	return view, nil
}

func (b blobOps) productViews(ctx context.Context, products []*Product) ([]ProductView, error) {
	var keys []string
	for _, p := range products {
		keys = append(keys, p.Images...)
	}
	urls, err := b.sign(ctx, keys)
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, len(products))
	for i, p := range products {
		n := len(p.Images)
		views[i] = ProductView{Product: p, ImageURLs: urls[:n:n]}
		urls = urls[n:]
	}
	return views, nil
}

// purge deletes keys after a commit. It runs detached from ctx's
// cancellation under BlobTimeout and returns the keys left behind.
func (b blobOps) purge(ctx context.Context, op string, keys []string) ([]string, error) {
	keys = compact(keys)
	if len(keys) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.BlobTimeout)
	defer cancel()

	err := b.store.DeleteMany(ctx, keys)
	if err == nil {
		return nil, nil
	}

	orphaned := blob.FailedKeys(err)
	if len(orphaned) == 0 {
		orphaned = keys
	}
	b.opts.Recorder.BlobCleanupFailed(op, len(orphaned))
	b.opts.Logger.Error("blob cleanup failed",
		slog.String("op", op),
		slog.Int("orphaned", len(orphaned)),
		slog.Any("error", err),
	)
	return orphaned, fmt.Errorf("%w: %w", ErrBlobCleanup, err)
}

// discard removes keys that never got referenced by a committed record.
// Failures are only logged; the stream sweeper catches leftovers under a
// deleted prefix.
func (b blobOps) discard(ctx context.Context, op string, keys []string) {
	if _, err := b.purge(ctx, op, keys); err != nil {
		b.opts.Logger.Warn("discarding unreferenced blobs failed",
			slog.String("op", op),
			slog.Any("keys", keys),
		)
	}
}

func compact(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
