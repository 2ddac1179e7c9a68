// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

// Application defaults
const (
	DefaultPort        = "8080"
	DefaultDBPath      = "jarvis.db"
	DefaultYTDLPPath   = "yt-dlp"
	DefaultAudioFormat = "mp3"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Audio formats accepted by yt-dlp's --audio-format
const (
	AudioFormatBest = "best"
	AudioFormatMP3  = "mp3"
	AudioFormatM4A  = "m4a"
	AudioFormatOpus = "opus"
	AudioFormatFLAC = "flac"
	AudioFormatWAV  = "wav"
)

// Persistence keys
const (
	KeyQueue          = "download_queue"
	KeyHistory        = "download_history"
	SettingRootFolder = "download_root_folder"
)

// Filesystem layout
const (
	DownloadsDirName = "Jarvis Downloads"
	ArchiveFileName  = ".jarvis-archive.txt"
	OutputTemplate   = "%(artist,uploader)s - %(title)s.%(ext)s"
)

// File Extensions
const (
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtM4A  = ".m4a"
	ExtOpus = ".opus"
	ExtOGG  = ".ogg"
	ExtWAV  = ".wav"
	ExtAAC  = ".aac"
)

// AudioExtensions lists the file types picked up by a library import.
var AudioExtensions = []string{ExtMP3, ExtM4A, ExtFLAC, ExtOpus, ExtOGG, ExtWAV, ExtAAC}

// File Permissions
const (
	DirPermissions = 0755
)

// MIME Types
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypePNG  = "image/png"
)

// Subprocess output
const (
	MaxOutputLineBytes = 1024 * 1024
	MaxListedItems     = 200
)
