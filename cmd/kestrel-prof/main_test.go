package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/kestrel/manifest"
	"github.com/chazu/kestrel/vm"
)

// writeSnapshot profiles f calling g twice and writes the snapshot.
func writeSnapshot(t *testing.T, dir, name string) (string, string) {
	t.Helper()
	e := vm.NewEvaluator(vm.NewModule(), vm.NewGlobals())
	if err := e.EnableProfile(vm.ProfileHeapFlame); err != nil {
		t.Fatal(err)
	}
	cm := vm.NewCodeMap("prog.star", "")
	g := e.Heap().Alloc(&vm.Def{FuncName: "g", CodeMap: cm, Body: func(e *vm.Evaluator) (vm.Value, error) {
		return e.Heap().AllocString("g"), nil
	}})
	f := e.Heap().Alloc(&vm.Def{FuncName: "f", CodeMap: cm, Body: func(e *vm.Evaluator) (vm.Value, error) {
		for i := 0; i < 2; i++ {
			if _, err := e.Call(g, nil, nil); err != nil {
				return vm.Value{}, err
			}
		}
		return vm.None, nil
	}})
	if _, err := e.Call(f, nil, nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := e.WriteProfileSnapshot(path); err != nil {
		t.Fatal(err)
	}
	return path, e.ProfileRunID()
}

func TestRenderFlame(t *testing.T) {
	path, _ := writeSnapshot(t, t.TempDir(), "run.cbor")
	var out bytes.Buffer
	if err := run(context.Background(), options{format: "flame"}, []string{path}, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "f 1\nf;g 2\n" {
		t.Errorf("flame output = %q", out.String())
	}
}

func TestRenderSummaryDefault(t *testing.T) {
	path, _ := writeSnapshot(t, t.TempDir(), "run.cbor")
	var out bytes.Buffer
	if err := run(context.Background(), options{}, []string{path}, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "Function,Calls,") {
		t.Errorf("summary output =\n%s", out.String())
	}
}

func TestArchiveAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, idA := writeSnapshot(t, dir, "a.cbor")
	b, idB := writeSnapshot(t, dir, "b.cbor")
	store := filepath.Join(dir, "profiles.db")

	var out bytes.Buffer
	if err := run(ctx, options{store: store}, []string{a, b}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "# "+a+" (run "+idA+")") {
		t.Errorf("multi-file output lacks headers:\n%s", out.String())
	}

	out.Reset()
	if err := run(ctx, options{store: store, list: true}, nil, &out); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{idA, idB} {
		if !strings.Contains(out.String(), id) {
			t.Errorf("run %s missing from list:\n%s", id, out.String())
		}
	}

	out.Reset()
	if err := run(ctx, options{store: store, load: idB, format: "flame"}, nil, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "f 1\nf;g 2\n" {
		t.Errorf("archived flame = %q", out.String())
	}
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	if err := run(ctx, options{}, nil, &out); err == nil {
		t.Error("expected error with no snapshots")
	}
	if err := run(ctx, options{format: "xml"}, []string{"x"}, &out); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := run(ctx, options{list: true}, nil, &out); err == nil {
		t.Error("expected error for -list without a store")
	}
	if err := run(ctx, options{}, []string{filepath.Join(t.TempDir(), "missing.cbor")}, &out); err == nil {
		t.Error("expected error for missing snapshot")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.cbor")
	os.WriteFile(garbage, []byte{0xff, 0x00}, 0644)
	if err := run(ctx, options{}, []string{garbage}, &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestApplyManifest(t *testing.T) {
	dir := t.TempDir()
	toml := "[profile]\nmode = \"heap-flame\"\nstore = \"prof.db\"\n"
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	var opts options
	if err := applyManifest(&opts, dir); err != nil {
		t.Fatal(err)
	}
	if opts.format != "flame" {
		t.Errorf("format = %q, want flame", opts.format)
	}
	abs, _ := filepath.Abs(dir)
	if opts.store != filepath.Join(abs, "prof.db") {
		t.Errorf("store = %q", opts.store)
	}

	opts = options{format: "summary", store: "cli.db"}
	if err := applyManifest(&opts, dir); err != nil {
		t.Fatal(err)
	}
	if opts.format != "summary" || opts.store != "cli.db" {
		t.Error("command-line settings must win over kestrel.toml")
	}
}
