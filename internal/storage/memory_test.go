package storage

import (
	"context"
	"testing"

	"fugo/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	record := model.RunRecord{RunID: "run-1", DatasetName: "iris", FinalBestFitness: 0.75, CreatedAtUTC: "2024-01-01T00:00:00Z"}
	if err := store.SaveRun(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.DatasetName != "iris" || got.FinalBestFitness != 0.75 {
		t.Fatalf("record = %+v", got)
	}
	if got.SchemaVersion != CurrentSchemaVersion {
		t.Fatalf("schema version not stamped: %d", got.SchemaVersion)
	}

	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("found a run that was never saved")
	}
}

func TestMemoryStoreListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.SaveRun(ctx, model.RunRecord{RunID: "old", CreatedAtUTC: "2024-01-01T00:00:00Z"})
	_ = store.SaveRun(ctx, model.RunRecord{RunID: "new", CreatedAtUTC: "2024-06-01T00:00:00Z"})

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" {
		t.Fatalf("runs = %+v, want newest first", runs)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited list = %+v, %v", limited, err)
	}
}

func TestMemoryStoreGenerationStatsAndChampion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	generations := []model.GenerationStats{{Population: "RULES", Generation: 0, MaxFitness: 0.5}}
	if err := store.SaveGenerationStats(ctx, "run-1", generations); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	got, ok, err := store.GetGenerationStats(ctx, "run-1")
	if err != nil || !ok || len(got) != 1 {
		t.Fatalf("get stats: %v ok=%v err=%v", got, ok, err)
	}

	xmlData := []byte("<Fuzzy_System></Fuzzy_System>")
	if err := store.SaveChampion(ctx, "run-1", xmlData); err != nil {
		t.Fatalf("save champion: %v", err)
	}
	champ, ok, err := store.GetChampion(ctx, "run-1")
	if err != nil || !ok || string(champ) != string(xmlData) {
		t.Fatalf("get champion: %q ok=%v err=%v", champ, ok, err)
	}

	if _, ok, _ := store.GetChampion(ctx, "missing"); ok {
		t.Fatal("found a champion that was never saved")
	}
}

func TestCodecVersionCheck(t *testing.T) {
	payload, err := EncodeRun(model.RunRecord{RunID: "run-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(payload); err != nil {
		t.Fatalf("decode: %v", err)
	}

	stale, err := EncodeGenerationStats(nil)
	if err != nil {
		t.Fatalf("encode stats: %v", err)
	}
	if _, err := DecodeGenerationStats(stale); err != nil {
		t.Fatalf("decode stats: %v", err)
	}

	if _, err := DecodeRun([]byte(`{"run_id":"x","schema_version":99,"codec_version":1}`)); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestFactory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil || store == nil {
		t.Fatalf("memory factory: %v", err)
	}
	if _, err := NewStore("bogus", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
