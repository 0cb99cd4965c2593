package spillq

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	dir := t.TempDir()
	sink := &stubSink{}
	obs := &stubObservability{}

	sp, err := flow.
		StreamIN(
			StreamInMaxRamRecords(7),
			StreamInTempDirs(dir),
			StreamInAllocator(NewTempAllocator()),
		).
		Options(WithLogger(zap.NewNop())).
		StreamOUT(
			StreamOutSink(sink),
			StreamOutObservability(obs),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if sp.sink != sink {
		t.Fatalf("expected custom sink to be wired")
	}
	if sp.obs != obs {
		t.Fatalf("expected custom observability to be wired")
	}
	if sp.allocator == nil {
		t.Fatalf("expected custom allocator to be wired")
	}
	if cfg.Queue.MaxRamRecords != 7 || cfg.Queue.TempDirs[0] != dir {
		t.Fatalf("queue overrides not applied: %+v", cfg.Queue)
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	cfg := testConfig(t)

	var seqs []uint64
	flow, err := ConfFromConfig(cfg, WithFlowOptions(WithLogger(zap.NewNop()), WithoutMetricsServer()))
	if err != nil {
		t.Fatalf("ConfFromConfig: %v", err)
	}

	res, err := flow.
		StreamIN(StreamInObservability(&stubObservability{})).
		Run(context.Background(), strings.NewReader(jsonLines(9)),
			StreamOutCallback("collect", func(batch []Record) error {
				for _, r := range batch {
					seqs = append(seqs, r.Seq)
				}
				return nil
			}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Drained != 9 || len(seqs) != 9 {
		t.Fatalf("expected 9 drained records, got %+v (%d delivered)", res, len(seqs))
	}
	for i, s := range seqs {
		if s != uint64(i+1) {
			t.Fatalf("position %d: got seq %d", i, s)
		}
	}
}

func TestConfLoadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spillq.yaml")
	raw := "queue:\n  max_ram_records: 16\n  temp_dirs: [\"" + dir + "\"]\nsink:\n  kind: stdout\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	flow, err := Conf(path)
	if err != nil {
		t.Fatalf("Conf: %v", err)
	}
	if got := flow.Config().Queue.MaxRamRecords; got != 16 {
		t.Fatalf("expected max_ram_records 16, got %d", got)
	}

	if _, err := Conf(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
