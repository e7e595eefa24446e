package tempfile

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// fallback subdirectory created under $HOME or the working directory
const scratchDirName = ".recsort-tmp"

var (
	scratchOnce sync.Once
	scratchDir  string
)

// GetTempDir returns dir when it is usable, otherwise a directory chosen once
// per process. Disk-backed locations such as /var/tmp are preferred over the
// OS default, which is often tmpfs: run files can be far larger than RAM.
func GetTempDir(dir string) string {
	if dir != "" && isDirectoryUsable(dir) {
		return dir
	}
	scratchOnce.Do(func() {
		scratchDir = findBestDirectory(candidates())
	})
	return scratchDir
}

// candidates lists scratch directories in order of preference.
func candidates() []string {
	var dirs []string
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly", "solaris":
		dirs = append(dirs, "/var/tmp")
	case "darwin":
		dirs = append(dirs, "/var/tmp", "/private/var/tmp")
	}
	dirs = append(dirs, os.TempDir())
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, scratchDirName))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, filepath.Join(wd, scratchDirName))
	}
	return dirs
}

// findBestDirectory returns the first usable candidate, or the OS default.
func findBestDirectory(dirs []string) string {
	for _, d := range dirs {
		if isDirectoryUsable(d) {
			return d
		}
	}
	return os.TempDir()
}

// isDirectoryUsable reports whether dir is a directory, or does not exist yet
// and may be created. Writability is left to the first create.
func isDirectoryUsable(dir string) bool {
	st, err := os.Stat(dir)
	if err != nil {
		return os.IsNotExist(err)
	}
	return st.IsDir()
}
