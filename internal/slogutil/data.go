package slogutil

import (
	"context"
	"log/slog"
	"slices"
)

// Attribute keys set on the context by the extraction pipeline.
const (
	JobKey     = "job_id"
	ArchiveKey = "archive"
)

// ctxAttrs keeps attributes in the order they were first set. Setting a key
// again replaces its value in place.
type ctxAttrs []slog.Attr

type attrsKey struct{}

func attrsFrom(ctx context.Context) ctxAttrs {
	a, _ := ctx.Value(attrsKey{}).(ctxAttrs)
	return a
}

// With returns a context whose log records carry the given key-value pairs.
func With(ctx context.Context, kvargs ...any) context.Context {
	added := slog.Group("", kvargs...).Value.Group()
	if len(added) == 0 {
		return ctx
	}

	merged := slices.Clone(attrsFrom(ctx))
	for _, a := range added {
		i := slices.IndexFunc(merged, func(b slog.Attr) bool { return b.Key == a.Key })
		if i >= 0 {
			merged[i] = a
			continue
		}
		merged = append(merged, a)
	}

	return context.WithValue(ctx, attrsKey{}, merged)
}

// WithJob tags records with the extraction job id.
func WithJob(ctx context.Context, id string) context.Context {
	return With(ctx, JobKey, id)
}

// WithArchive tags records with the archive being processed.
func WithArchive(ctx context.Context, name string) context.Context {
	return With(ctx, ArchiveKey, name)
}

type contextHook struct{}

func (contextHook) Run(ctx context.Context, r *slog.Record) {
	r.AddAttrs(attrsFrom(ctx)...)
}
