// Package tagging reads embedded metadata from audio files.
package tagging

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/cesargomez89/jarvis/internal/constants"
	"github.com/cesargomez89/jarvis/internal/domain"
)

// Tags holds the embedded metadata an import cares about. Any field may be
// empty.
type Tags struct {
	Artist      string
	Title       string
	ArtworkMIME string
	Artwork     []byte
}

// Read extracts tags from the file at path. Files are never modified.
// Unsupported formats return the tags derivable from the file name.
func Read(path string) (Tags, error) {
	var (
		tags Tags
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case constants.ExtMP3:
		tags, err = readMP3(path)
	case constants.ExtFLAC:
		tags, err = readFLAC(path)
	}
	fillFromName(&tags, path)
	return tags, err
}

func readMP3(path string) (Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Tags{}, err
	}
	defer tag.Close()

	tags := Tags{
		Artist: strings.TrimSpace(tag.Artist()),
		Title:  strings.TrimSpace(tag.Title()),
	}

	for _, f := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		// Prefer the front cover, otherwise keep the first picture.
		if tags.Artwork == nil || pic.PictureType == id3v2.PTFrontCover {
			tags.Artwork = pic.Picture
			tags.ArtworkMIME = pictureMIME(pic.MimeType, pic.Picture)
		}
		if pic.PictureType == id3v2.PTFrontCover {
			break
		}
	}
	return tags, nil
}

func readFLAC(path string) (Tags, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return Tags{}, err
	}

	var tags Tags
	for _, block := range f.Meta {
		switch block.Type {
		case flac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			if v, err := cmt.Get(flacvorbis.FIELD_ARTIST); err == nil && len(v) > 0 {
				tags.Artist = strings.TrimSpace(v[0])
			}
			if v, err := cmt.Get(flacvorbis.FIELD_TITLE); err == nil && len(v) > 0 {
				tags.Title = strings.TrimSpace(v[0])
			}
		case flac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			if tags.Artwork == nil || pic.PictureType == flacpicture.PictureTypeFrontCover {
				tags.Artwork = pic.ImageData
				tags.ArtworkMIME = pictureMIME(pic.MIME, pic.ImageData)
			}
		}
	}
	return tags, nil
}

// fillFromName completes missing fields from an "Artist - Title" file name,
// the layout yt-dlp writes with the download template.
func fillFromName(tags *Tags, path string) {
	if tags.Artist != "" && tags.Title != "" {
		return
	}
	stem := domain.FileStem(path)
	artist, title, ok := strings.Cut(stem, " - ")
	if !ok {
		if tags.Title == "" {
			tags.Title = stem
		}
		return
	}
	if tags.Artist == "" {
		tags.Artist = strings.TrimSpace(artist)
	}
	if tags.Title == "" {
		tags.Title = strings.TrimSpace(title)
	}
}

func pictureMIME(declared string, data []byte) string {
	switch strings.ToLower(declared) {
	case constants.MimeTypeJPEG, "image/jpg", "jpg", "jpeg":
		return constants.MimeTypeJPEG
	case constants.MimeTypePNG, "png":
		return constants.MimeTypePNG
	}
	return http.DetectContentType(data)
}
