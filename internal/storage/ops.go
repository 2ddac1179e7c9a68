package storage

import (
	"os"
	"path/filepath"

	"github.com/cesargomez89/jarvis/internal/constants"
)

// Layout resolves the on-disk locations derived from the chosen root folder.
type Layout struct {
	Root string
}

// DownloadsDir is the fixed subfolder every download lands in.
func (l Layout) DownloadsDir() string {
	return filepath.Join(l.Root, constants.DownloadsDirName)
}

// ArchivePath is the yt-dlp download archive used to detect duplicates.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.DownloadsDir(), constants.ArchiveFileName)
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// RemoveFiles deletes every path, ignoring ones that are already gone.
// It returns the paths that could not be removed along with their errors.
func RemoveFiles(paths []string) map[string]error {
	failed := map[string]error{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := RemoveFile(p); err != nil && !IsNotExist(err) {
			failed[p] = err
		}
	}
	return failed
}
