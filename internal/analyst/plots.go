package analyst

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// legacyPlotFile is the fixed filename older generated code saved plots
// under. It is honored for reads only; new plots always get numbered names.
const legacyPlotFile = "temp_plot.png"

// plotWaitTimeout bounds how long we watch for a plot file to appear after
// the engine reports success. Bind-mounted workspaces can lag slightly
// behind the container's writes, but only slightly; questions that never
// produce a plot pay this wait in full, so it stays short.
const plotWaitTimeout = 500 * time.Millisecond

// plotFileName returns the deterministic artifact name for the n-th plot of
// a session. Session-scoped names keep concurrent sessions from clobbering
// each other's images.
func plotFileName(sessionID string, n int) string {
	return fmt.Sprintf("%s_plot_%d.png", sessionID, n)
}

// findPlot probes the workspace for the expected plot file, waiting briefly
// for it to appear, then falls back to the legacy fixed filename. Returns
// the absolute path, or "" when no image exists.
func findPlot(workDir, name string) string {
	expected := filepath.Join(workDir, name)
	if fileExists(expected) {
		return expected
	}

	if waitForFile(workDir, name, plotWaitTimeout) {
		return expected
	}

	legacy := filepath.Join(workDir, legacyPlotFile)
	if fileExists(legacy) {
		return legacy
	}
	return ""
}

// waitForFile watches dir until a file with the given base name is created
// or written, or the timeout elapses. A final stat covers the race where the
// file landed before the watch started.
func waitForFile(dir, name string, timeout time.Duration) bool {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WARNING: Failed to create plot watcher: %v", err)
		return fileExists(filepath.Join(dir, name))
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		log.Printf("WARNING: Failed to watch workspace %s: %v", dir, err)
		return fileExists(filepath.Join(dir, name))
	}

	// The file may have appeared between the first probe and the watch.
	if fileExists(filepath.Join(dir, name)) {
		return true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if filepath.Base(event.Name) == name &&
				(event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				return true
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			log.Printf("WARNING: Plot watcher error: %v", err)
		case <-deadline.C:
			return fileExists(filepath.Join(dir, name))
		}
	}
}

// cleanupPlots removes a session's plot files at indices below max, plus the
// legacy fixed file. A bounded sweep: files at or beyond max are left alone.
func cleanupPlots(workDir, sessionID string, max int) {
	for i := 0; i < max; i++ {
		path := filepath.Join(workDir, plotFileName(sessionID, i))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("WARNING: Failed to remove plot file %s: %v", path, err)
		}
	}
	legacy := filepath.Join(workDir, legacyPlotFile)
	if err := os.Remove(legacy); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: Failed to remove plot file %s: %v", legacy, err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
