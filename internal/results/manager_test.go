package results

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create Manager: %v", err)
	}
	return manager
}

func TestNewManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "results")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create Manager: %v", err)
	}
	if manager.BaseDir() != dir {
		t.Errorf("Expected base dir %s, got %s", dir, manager.BaseDir())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("base dir not created: %v", err)
	}
}

func TestCreateAndLoad(t *testing.T) {
	manager := newTestManager(t)

	rec := &JobRecord{
		FileName:      "paper.pdf",
		SourceLang:    "en",
		TargetLang:    "ko",
		TranslateText: true,
		Mode:          "overlay",
	}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Create did not assign an id")
	}
	if rec.Status != StatusPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	loaded, err := manager.Load(rec.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.FileName != "paper.pdf" || loaded.SourceLang != "en" || loaded.TargetLang != "ko" || !loaded.TranslateText {
		t.Errorf("loaded record = %+v", loaded)
	}
	if !manager.Exists(rec.ID) {
		t.Error("Exists returned false for a saved job")
	}
}

func TestLoadErrors(t *testing.T) {
	manager := newTestManager(t)

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown uuid", id: "7d444840-9dc0-11d1-b245-5ffdce74fad2"},
		{name: "not a uuid", id: "latest"},
		{name: "path traversal", id: "../../etc/passwd"},
		{name: "empty", id: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Load(tt.id)
			if !errors.Is(err, ErrJobNotFound) {
				t.Errorf("Load(%q) error = %v, want ErrJobNotFound", tt.id, err)
			}
			if manager.Exists(tt.id) {
				t.Errorf("Exists(%q) = true", tt.id)
			}
		})
	}
}

func TestUpdateProgress(t *testing.T) {
	manager := newTestManager(t)
	rec := &JobRecord{SourceLang: "en", TargetLang: "ko"}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	steps := []struct {
		phase    string
		progress float64
		want     float64
	}{
		{phase: "extracting", progress: 0.1, want: 0.1},
		{phase: "translating", progress: 0.4, want: 0.4},
		{phase: "translating", progress: 0.35, want: 0.4},
		{phase: "generating", progress: 0.8, want: 0.8},
	}
	for _, s := range steps {
		if err := manager.UpdateProgress(rec.ID, s.phase, s.progress, s.phase); err != nil {
			t.Fatalf("UpdateProgress failed: %v", err)
		}
		got, err := manager.Load(rec.ID)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if got.Status != StatusRunning {
			t.Errorf("Status = %q, want running", got.Status)
		}
		if got.Progress != s.want {
			t.Errorf("Progress after %v = %v, want %v", s.progress, got.Progress, s.want)
		}
		if got.Phase != s.phase {
			t.Errorf("Phase = %q, want %q", got.Phase, s.phase)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	manager := newTestManager(t)
	rec := &JobRecord{}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := manager.UpdateStatus(rec.ID, StatusError, "document is encrypted"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	got, _ := manager.Load(rec.ID)
	if got.Status != StatusError || got.ErrorMessage != "document is encrypted" {
		t.Errorf("record = %+v", got)
	}
	if !got.Done() {
		t.Error("errored job should be done")
	}

	// Late progress updates do not revive a finished job.
	if err := manager.UpdateProgress(rec.ID, "translating", 0.5, "late"); err != nil {
		t.Fatalf("UpdateProgress failed: %v", err)
	}
	got, _ = manager.Load(rec.ID)
	if got.Status != StatusError {
		t.Errorf("Status = %q after late progress, want error", got.Status)
	}

	if err := manager.UpdateStatus("7d444840-9dc0-11d1-b245-5ffdce74fad2", StatusComplete, ""); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("UpdateStatus on unknown job = %v", err)
	}
}

func TestSaveAndReadOutput(t *testing.T) {
	manager := newTestManager(t)
	rec := &JobRecord{}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := manager.ReadOutput(rec.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("ReadOutput before completion = %v, want ErrJobNotFound", err)
	}

	output := []byte("%PDF-1.4 translated")
	if err := manager.SaveOutput(rec.ID, output); err != nil {
		t.Fatalf("SaveOutput failed: %v", err)
	}

	data, err := manager.ReadOutput(rec.ID)
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if string(data) != string(output) {
		t.Errorf("ReadOutput = %q", data)
	}

	got, _ := manager.Load(rec.ID)
	if got.Status != StatusComplete || got.Progress != 1 || got.OutputSize != int64(len(output)) {
		t.Errorf("record after SaveOutput = %+v", got)
	}

	path, err := manager.OutputPath(rec.ID)
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(manager.BaseDir(), rec.ID) {
		t.Errorf("OutputPath = %s", path)
	}

	if err := manager.SaveOutput("7d444840-9dc0-11d1-b245-5ffdce74fad2", output); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("SaveOutput on unknown job = %v", err)
	}
}

func TestListAndIncomplete(t *testing.T) {
	manager := newTestManager(t)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := &JobRecord{FileName: "f.pdf"}
		if err := manager.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, rec.ID)
		time.Sleep(5 * time.Millisecond)
	}
	if err := manager.SaveOutput(ids[0], []byte("%PDF")); err != nil {
		t.Fatalf("SaveOutput failed: %v", err)
	}

	// Stray entries are ignored.
	if err := os.MkdirAll(filepath.Join(manager.BaseDir(), "not-a-job"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(manager.BaseDir(), "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	jobs, err := manager.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("List returned %d jobs, want 3", len(jobs))
	}
	if jobs[0].ID != ids[2] || jobs[2].ID != ids[0] {
		t.Errorf("List not newest first: %s %s %s", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}

	incomplete, err := manager.Incomplete()
	if err != nil {
		t.Fatalf("Incomplete failed: %v", err)
	}
	if len(incomplete) != 2 {
		t.Errorf("Incomplete returned %d jobs, want 2", len(incomplete))
	}
}

func TestDelete(t *testing.T) {
	manager := newTestManager(t)
	rec := &JobRecord{}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := manager.SaveOutput(rec.ID, []byte("%PDF")); err != nil {
		t.Fatalf("SaveOutput failed: %v", err)
	}

	if err := manager.Delete(rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if manager.Exists(rec.ID) {
		t.Error("job still exists after Delete")
	}
	if err := manager.Delete("../outside"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Delete with invalid id = %v", err)
	}
}

func TestFindByMD5(t *testing.T) {
	manager := newTestManager(t)
	source := []byte("%PDF-1.4 source document")
	hash := CalculateMD5(source)

	if len(hash) != 32 {
		t.Fatalf("CalculateMD5 length = %d", len(hash))
	}
	if hash != CalculateMD5(source) {
		t.Fatal("CalculateMD5 not deterministic")
	}

	pending := &JobRecord{SourceMD5: hash, SourceLang: "en", TargetLang: "ko"}
	done := &JobRecord{SourceMD5: hash, SourceLang: "en", TargetLang: "ko"}
	otherLang := &JobRecord{SourceMD5: hash, SourceLang: "en", TargetLang: "ja"}
	for _, r := range []*JobRecord{pending, done, otherLang} {
		if err := manager.Create(r); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := manager.SaveOutput(done.ID, []byte("%PDF")); err != nil {
		t.Fatal(err)
	}

	found, err := manager.FindByMD5(hash, "en", "ko")
	if err != nil {
		t.Fatalf("FindByMD5 failed: %v", err)
	}
	if found == nil || found.ID != done.ID {
		t.Errorf("FindByMD5 = %+v, want job %s", found, done.ID)
	}

	found, err = manager.FindByMD5(hash, "en", "de")
	if err != nil || found != nil {
		t.Errorf("FindByMD5 for another target = %+v, %v", found, err)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	manager := newTestManager(t)
	rec := &JobRecord{}
	if err := manager.Create(rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := manager.UpdateProgress(rec.ID, "translating", float64(i)/20*0.9, "working"); err != nil {
				t.Errorf("UpdateProgress failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := manager.Load(rec.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Progress != 0.9 {
		t.Errorf("Progress = %v, want the maximum 0.9", got.Progress)
	}
}
