package domain

import (
	"net/url"
	"strings"
)

var playlistMarkers = []string{"/sets/", "?list=", "&list=", "/album/"}

// Classify maps a URL to its source platform and whether it names a
// collection. It never fails: anything unrecognised is SourceUnknown.
func Classify(rawURL string) (Source, bool) {
	return classifySource(rawURL), isPlaylistURL(rawURL)
}

func classifySource(rawURL string) Source {
	host := rawURL
	if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	switch {
	case strings.Contains(host, "soundcloud.com"):
		return SourceSoundCloud
	case strings.Contains(host, "bandcamp.com"):
		return SourceBandcamp
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return SourceYouTube
	default:
		return SourceUnknown
	}
}

func isPlaylistURL(rawURL string) bool {
	for _, marker := range playlistMarkers {
		if strings.Contains(rawURL, marker) {
			return true
		}
	}
	return false
}

// ValidURL reports whether raw is an absolute http(s) URL with a host.
func ValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
