package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestIsScratchName(t *testing.T) {
	id := uuid.NewString()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"uuid with extension", id + ".mp4", true},
		{"bare uuid", id, true},
		{"uuid with suffix", id + "_remuxed.mp4", true},
		{"short name", "video.mp4", false},
		{"long but not uuid", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.mp4", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isScratchName(tt.in); got != tt.want {
				t.Errorf("isScratchName(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSweepRemovesOnlyStaleScratchFiles(t *testing.T) {
	dir := t.TempDir()
	stale := time.Now().Add(-time.Hour)

	oldScratch := filepath.Join(dir, uuid.NewString()+".mp4")
	freshScratch := filepath.Join(dir, uuid.NewString()+".mp4")
	foreign := filepath.Join(dir, "somebody-elses-file.mp4")

	for _, p := range []string{oldScratch, freshScratch, foreign} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// Only the first one has aged past maxAge
	if err := os.Chtimes(oldScratch, stale, stale); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(foreign, stale, stale); err != nil {
		t.Fatal(err)
	}

	s := NewScratchSweeper(dir, 30*time.Minute, time.Hour, zap.NewNop())
	s.Sweep()

	if _, err := os.Stat(oldScratch); !os.IsNotExist(err) {
		t.Error("stale scratch file survived the sweep")
	}
	if _, err := os.Stat(freshScratch); err != nil {
		t.Error("fresh scratch file was swept")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("file without a UUID stem was swept")
	}
}

func TestSweeperStartStop(t *testing.T) {
	s := NewScratchSweeper(t.TempDir(), time.Minute, 10*time.Millisecond, zap.NewNop())
	s.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return")
	}
}
