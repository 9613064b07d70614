package intake

import (
	"os"
	"path/filepath"
	"testing"

	"researchd/app/config"
	"researchd/app/service/queue"

	"github.com/samber/do"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *queue.Service) {
	t.Helper()

	queueSvc, err := queue.New(nil)
	require.NoError(t, err)

	di := do.New()
	do.ProvideValue(di, &config.Config{
		Research: config.Research{Volume: t.TempDir()},
	})
	do.ProvideValue(di, queueSvc)

	svc, err := New(di)
	require.NoError(t, err)

	return svc, queueSvc
}

func writeTask(t *testing.T, volume, id, text string) {
	t.Helper()

	path := filepath.Join(volume, taskPrefix+id+taskSuffix)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestParseTaskFilename(t *testing.T) {
	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"research_task_abc123.txt", "abc123", true},
		{"research_task_.txt", "", false},
		{"research_result_abc123.txt", "", false},
		{"research_task_abc123.json", "", false},
		{"notes.txt", "", false},
	}

	for _, tt := range tests {
		id, ok := parseTaskFilename(tt.name)
		require.Equal(t, tt.wantOK, ok, tt.name)
		require.Equal(t, tt.wantID, id, tt.name)
	}
}

func TestScanVolumePicksUpTasks(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	writeTask(t, volume, "one", "first architecture")
	writeTask(t, volume, "two", "second architecture")

	svc.scanVolume()

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		task := <-queueSvc.Channel()
		got[task.ID] = task.Text
	}

	require.Equal(t, map[string]string{
		"one": "first architecture",
		"two": "second architecture",
	}, got)
}

func TestScanVolumeSkipsProcessedTasks(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	writeTask(t, volume, "one", "architecture")

	svc.scanVolume()
	svc.scanVolume()

	<-queueSvc.Channel()

	select {
	case task := <-queueSvc.Channel():
		t.Fatalf("task %q enqueued twice", task.ID)
	default:
	}
}

func TestScanVolumeSkipsCompletedTasks(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	writeTask(t, volume, "done", "architecture")
	resultPath := filepath.Join(volume, resultPrefix+"done"+taskSuffix)
	require.NoError(t, os.WriteFile(resultPath, []byte("summary"), 0644))

	svc.scanVolume()

	select {
	case task := <-queueSvc.Channel():
		t.Fatalf("completed task %q enqueued", task.ID)
	default:
	}
}

func TestScanVolumeIgnoresUnrelatedFiles(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	require.NoError(t, os.WriteFile(filepath.Join(volume, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(volume, "research_task_dir.txt"), 0755))

	svc.scanVolume()

	select {
	case task := <-queueSvc.Channel():
		t.Fatalf("unexpected task %q", task.ID)
	default:
	}
}

func TestScanVolumeRetriesFileWrittenAfterCreate(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	// A non-atomic drop: the file exists before its content does.
	writeTask(t, volume, "42", "")
	svc.scanVolume()

	select {
	case task := <-queueSvc.Channel():
		t.Fatalf("empty task file enqueued as %q", task.Text)
	default:
	}

	writeTask(t, volume, "42", "real architecture")
	svc.scanVolume()

	task := <-queueSvc.Channel()
	require.Equal(t, "42", task.ID)
	require.Equal(t, "real architecture", task.Text)

	svc.scanVolume()

	select {
	case <-queueSvc.Channel():
		t.Fatal("task enqueued twice")
	default:
	}
}

func TestSubmitEnqueuesWithFreshID(t *testing.T) {
	svc, queueSvc := newTestService(t)

	firstID := svc.Submit("architecture one")
	secondID := svc.Submit("architecture two")

	require.NotEqual(t, firstID, secondID)

	first := <-queueSvc.Channel()
	require.Equal(t, firstID, first.ID)
	require.Equal(t, "architecture one", first.Text)

	second := <-queueSvc.Channel()
	require.Equal(t, secondID, second.ID)
}

func TestSubmitMarksProcessed(t *testing.T) {
	svc, queueSvc := newTestService(t)
	volume := svc.cfg.Research.Volume

	id := svc.Submit("architecture")
	<-queueSvc.Channel()

	// A task file dropped under an id already submitted over HTTP is ignored.
	writeTask(t, volume, id, "architecture")
	svc.scanVolume()

	select {
	case task := <-queueSvc.Channel():
		t.Fatalf("task %q enqueued twice", task.ID)
	default:
	}
}
