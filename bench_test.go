package compgraph

import (
	"context"
	"path/filepath"
	"testing"
)

func benchmarkAnalyze(b *testing.B, n int, opts ...Option) {
	e, err := New(opts...)
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()
	files := chainFiles(n)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if g := e.Analyze(ctx, files); g.Empty() {
			b.Fatal("empty graph")
		}
	}
}

func BenchmarkAnalyze_Serial200(b *testing.B) {
	benchmarkAnalyze(b, 200, WithParallel(false))
}

func BenchmarkAnalyze_Parallel200(b *testing.B) {
	benchmarkAnalyze(b, 200, WithParallel(true))
}

func BenchmarkAnalyze_Cached200(b *testing.B) {
	benchmarkAnalyze(b, 200, WithParallel(true), WithCacheSize(512))
}

func BenchmarkAnalyzeDirectory_Persisted(b *testing.B) {
	dir := b.TempDir()
	e, err := New(WithDatabase(filepath.Join(dir, "bench.db")))
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()

	root := filepath.Join(dir, "app")
	for _, f := range chainFiles(100) {
		writeSourceFile(b, root, f.Path, f.Content)
	}
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, _, err := e.AnalyzeDirectory(ctx, root); err != nil {
			b.Fatal(err)
		}
	}
}
