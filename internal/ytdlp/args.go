package ytdlp

import (
	"path/filepath"

	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
)

// Request describes a single yt-dlp invocation.
type Request struct {
	URL           string
	Source        domain.Source
	Destination   string
	ArchivePath   string
	AudioFormat   string
	IsPlaylist    bool
	IgnoreArchive bool
}

var soundCloudHeaders = []string{
	"Referer:https://soundcloud.com/",
	"Origin:https://soundcloud.com",
}

// BuildArgs returns the argument vector for req. The result depends only on
// req.
func BuildArgs(req Request) []string {
	format := req.AudioFormat
	if format == "" {
		format = constants.DefaultAudioFormat
	}

	args := []string{
		"-x",
		"--audio-format", format,
		"--embed-thumbnail",
		"--add-metadata",
		"-o", filepath.Join(req.Destination, constants.OutputTemplate),
		"--print", "after_move:filepath",
	}

	if req.IgnoreArchive || req.ArchivePath == "" {
		args = append(args, "--force-overwrites")
	} else {
		args = append(args, "--download-archive", req.ArchivePath)
	}

	args = append(args, "--newline", "--progress")

	if req.Source == domain.SourceSoundCloud {
		for _, h := range soundCloudHeaders {
			args = append(args, "--add-header", h)
		}
	}

	if req.IsPlaylist {
		args = append(args,
			"--yes-playlist",
			"--print", "playlist:"+PlaylistTitleMarker+"%(title)s",
			"--print", "playlist:"+PlaylistCountMarker+"%(playlist_count)s",
		)
	} else {
		args = append(args, "--no-playlist")
	}

	return append(args, req.URL)
}
