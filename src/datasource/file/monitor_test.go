package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMonitorWatch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "churn.csv")
	require.NoError(t, os.WriteFile(target, []byte(churnCSV), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(target, past, past))

	monitor, err := NewFileMonitor(target)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(path string) { changed <- path })
	}()

	// 其它文件的变化不触发回调
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(target, []byte(churnCSV+"9237-HQITU,Female,Yes,Yes\n"), 0644))

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(target)
		assert.Equal(t, abs, path)
	case <-time.After(5 * time.Second):
		t.Fatal("未检测到文件变化")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch 未退出")
	}
}
