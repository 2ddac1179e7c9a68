package ytdlp

import (
	"math"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Markers emitted by the playlist --print directives in BuildArgs.
const (
	PlaylistTitleMarker = "JARVIS_PLAYLIST_TITLE:"
	PlaylistCountMarker = "JARVIS_PLAYLIST_COUNT:"
)

type EventKind int

const (
	EventProgress EventKind = iota + 1
	EventPlaylistTitle
	EventTotalTracks
	EventTrackStarted
	EventTrackDownloaded
	EventTrackSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventPlaylistTitle:
		return "playlist_title"
	case EventTotalTracks:
		return "total_tracks"
	case EventTrackStarted:
		return "track_started"
	case EventTrackDownloaded:
		return "track_downloaded"
	case EventTrackSkipped:
		return "track_skipped"
	default:
		return "unknown"
	}
}

// Event is one update parsed from yt-dlp output. Only the field matching
// Kind is set: Progress in [0,1], Title, Count (total or track index) or Path.
type Event struct {
	Title    string
	Path     string
	Kind     EventKind
	Count    int
	Progress float64
}

// Summary is the parser's accumulated view of a finished invocation.
type Summary struct {
	PlaylistTitle string
	LastPath      string
	Files         []string
	TotalTracks   int
	Downloaded    int
	Skipped       int
	CurrentTrack  int
}

// Duplicate reports whether the run only hit the download archive: every
// track was archived, or nothing new was produced and something was skipped.
func (s Summary) Duplicate() bool {
	if s.Skipped == 0 {
		return false
	}
	if s.TotalTracks > 0 && s.Skipped >= s.TotalTracks {
		return true
	}
	return s.Downloaded == 0
}

var (
	itemsRe        = regexp.MustCompile(`Downloading (\d+) items(?: of (\d+))?`)
	itemRe         = regexp.MustCompile(`^\[download\] Downloading (?:item|video) (\d+) of (\d+)`)
	archivedPhrase = "has already been recorded in the archive"
	existingPhrase = "has already been downloaded"
	playlistPrefix = "[download] Downloading playlist:"
	downloadPrefix = "[download]"
)

// Parser turns yt-dlp stdout into Events, one line at a time. A Parser
// belongs to a single invocation and is not safe for concurrent use.
type Parser struct {
	existing    map[string]struct{}
	destination string
	summary     Summary
}

// NewParser returns a parser that recognises printed file paths under
// destination, resolved against the working directory when relative. An
// empty destination accepts any absolute path.
func NewParser(destination string) *Parser {
	if destination != "" && !filepath.IsAbs(destination) {
		if abs, err := filepath.Abs(destination); err == nil {
			destination = abs
		}
	}
	return &Parser{destination: filepath.Clean(destination)}
}

// Feed consumes one line and returns the events it produced, if any.
func (p *Parser) Feed(raw string) []Event {
	line := strings.TrimSpace(strings.TrimRight(raw, "\r\n"))
	if line == "" {
		return nil
	}

	switch {
	case strings.HasPrefix(line, PlaylistTitleMarker):
		return p.title(strings.TrimPrefix(line, PlaylistTitleMarker))
	case strings.HasPrefix(line, PlaylistCountMarker):
		if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, PlaylistCountMarker))); err == nil {
			return p.total(n)
		}
		return nil
	case strings.HasPrefix(line, playlistPrefix):
		return p.title(strings.TrimPrefix(line, playlistPrefix))
	case strings.Contains(line, existingPhrase):
		p.rememberExisting(line)
		p.summary.Skipped++
		return []Event{{Kind: EventTrackSkipped, Count: p.summary.Skipped}}
	case strings.Contains(line, archivedPhrase):
		p.summary.Skipped++
		return []Event{{Kind: EventTrackSkipped, Count: p.summary.Skipped}}
	}

	if m := itemRe.FindStringSubmatch(line); m != nil {
		index, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		p.summary.CurrentTrack = index
		events := p.total(total)
		return append(events, Event{Kind: EventTrackStarted, Count: index})
	}

	if m := itemsRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return p.total(n)
	}

	if strings.HasPrefix(line, downloadPrefix) {
		if strings.Contains(line, "Destination:") {
			return nil
		}
		if pct, ok := parsePercent(line); ok {
			return []Event{{Kind: EventProgress, Progress: pct}}
		}
		return nil
	}

	if p.isProducedPath(line) {
		if p.isExisting(line) {
			// Post-processing reprints a file that was already on disk.
			return nil
		}
		p.summary.Downloaded++
		p.summary.LastPath = line
		if !slices.Contains(p.summary.Files, line) {
			p.summary.Files = append(p.summary.Files, line)
		}
		return []Event{{Kind: EventTrackDownloaded, Path: line}}
	}

	return nil
}

// Summary returns a copy of everything seen so far.
func (p *Parser) Summary() Summary {
	s := p.summary
	s.Files = slices.Clone(p.summary.Files)
	return s
}

func (p *Parser) title(raw string) []Event {
	t := strings.TrimSpace(raw)
	if t == "" || t == "NA" || p.summary.PlaylistTitle != "" {
		return nil
	}
	p.summary.PlaylistTitle = t
	return []Event{{Kind: EventPlaylistTitle, Title: t}}
}

func (p *Parser) total(n int) []Event {
	if n <= 0 || n == p.summary.TotalTracks {
		return nil
	}
	if p.summary.TotalTracks > 0 && n > p.summary.TotalTracks {
		// Keep the smaller count: a filtered run reports "Downloading N items
		// of M" while the playlist-wide print still says M.
		return nil
	}
	p.summary.TotalTracks = n
	return []Event{{Kind: EventTotalTracks, Count: n}}
}

func (p *Parser) isProducedPath(line string) bool {
	if strings.HasPrefix(line, "[") || !filepath.IsAbs(line) {
		return false
	}
	if p.destination == "" || p.destination == "." {
		return true
	}
	return strings.HasPrefix(filepath.Clean(line), p.destination+string(filepath.Separator))
}

// rememberExisting records the file named in an "already downloaded" line.
// The printed path after post-processing may carry a different extension, so
// paths are compared without one.
func (p *Parser) rememberExisting(line string) {
	path := strings.TrimSpace(strings.TrimPrefix(line, downloadPrefix))
	path = strings.TrimSpace(strings.TrimSuffix(path, existingPhrase))
	if !p.isProducedPath(path) {
		return
	}
	if p.existing == nil {
		p.existing = make(map[string]struct{})
	}
	p.existing[withoutExt(path)] = struct{}{}
}

func (p *Parser) isExisting(path string) bool {
	_, ok := p.existing[withoutExt(path)]
	return ok
}

func withoutExt(path string) string {
	path = filepath.Clean(path)
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// parsePercent finds the first whitespace-separated token ending in '%' and
// returns it as a fraction. Unparsable tokens are skipped.
func parsePercent(line string) (float64, bool) {
	for _, field := range strings.Fields(line) {
		if !strings.HasSuffix(field, "%") {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		return v / 100, true
	}
	return 0, false
}
