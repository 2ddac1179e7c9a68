package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/cesargomez89/jarvis/internal/domain"
)

// Items are stored as protobuf wire records. Field numbers are part of the
// on-disk format and must never be reused.
const codecVersion = 1

const (
	fieldVersion protowire.Number = 1
	fieldItem    protowire.Number = 2
)

const (
	itemID            protowire.Number = 1
	itemURL           protowire.Number = 2
	itemSource        protowire.Number = 3
	itemStatus        protowire.Number = 4
	itemProgress      protowire.Number = 5
	itemFileName      protowire.Number = 6
	itemFilePath      protowire.Number = 7
	itemErrorMessage  protowire.Number = 8
	itemCreatedAt     protowire.Number = 9
	itemCompletedAt   protowire.Number = 10
	itemPlaylist      protowire.Number = 12
	itemImported      protowire.Number = 13
	itemIgnoreArchive protowire.Number = 14
)

const (
	playlistTitle      protowire.Number = 1
	playlistTotal      protowire.Number = 2
	playlistDownloaded protowire.Number = 3
	playlistSkipped    protowire.Number = 4
	playlistCurrent    protowire.Number = 5
	playlistFile       protowire.Number = 6
)

const (
	importedArtwork protowire.Number = 1
	importedMIME    protowire.Number = 2
	importedArtist  protowire.Number = 3
	importedTitle   protowire.Number = 4
)

var ErrUnsupportedVersion = errors.New("unsupported collection format version")

// EncodeItems serializes items in order.
func EncodeItems(items []*domain.DownloadItem) []byte {
	b := protowire.AppendTag(nil, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, codecVersion)
	for _, item := range items {
		b = protowire.AppendTag(b, fieldItem, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeItem(item))
	}
	return b
}

// DecodeItems parses data produced by EncodeItems. Empty input decodes to an
// empty collection.
func DecodeItems(data []byte) ([]*domain.DownloadItem, error) {
	items := []*domain.DownloadItem{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, nil
			}
			if v > codecVersion {
				return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
			}
			return n, nil
		case num == fieldItem && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			item, err := decodeItem(raw)
			if err != nil {
				return 0, fmt.Errorf("item %d: %w", len(items), err)
			}
			items = append(items, item)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func encodeItem(item *domain.DownloadItem) []byte {
	var b []byte
	b = appendString(b, itemID, item.ID)
	b = appendString(b, itemURL, item.URL)
	b = appendString(b, itemSource, string(item.Source))
	b = appendString(b, itemStatus, string(item.Status))
	if item.Progress != 0 {
		b = protowire.AppendTag(b, itemProgress, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(item.Progress))
	}
	b = appendString(b, itemFileName, item.FileName)
	b = appendString(b, itemFilePath, item.FilePath)
	b = appendString(b, itemErrorMessage, item.ErrorMessage)
	b = appendTime(b, itemCreatedAt, item.CreatedAt)
	b = appendTime(b, itemCompletedAt, item.CompletedAt)
	if item.IgnoreArchive {
		b = protowire.AppendTag(b, itemIgnoreArchive, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}

	switch v := item.Variant.(type) {
	case *domain.Playlist:
		var p []byte
		p = appendString(p, playlistTitle, v.Title)
		p = appendInt(p, playlistTotal, v.TotalTracks)
		p = appendInt(p, playlistDownloaded, v.DownloadedTracks)
		p = appendInt(p, playlistSkipped, v.SkippedTracks)
		p = appendInt(p, playlistCurrent, v.CurrentTrack)
		for _, f := range v.Files {
			p = protowire.AppendTag(p, playlistFile, protowire.BytesType)
			p = protowire.AppendString(p, f)
		}
		b = protowire.AppendTag(b, itemPlaylist, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	case *domain.Imported:
		var m []byte
		if len(v.Artwork) > 0 {
			m = protowire.AppendTag(m, importedArtwork, protowire.BytesType)
			m = protowire.AppendBytes(m, v.Artwork)
		}
		m = appendString(m, importedMIME, v.ArtworkMIME)
		m = appendString(m, importedArtist, v.Artist)
		m = appendString(m, importedTitle, v.Title)
		b = protowire.AppendTag(b, itemImported, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	return b
}

func decodeItem(data []byte) (*domain.DownloadItem, error) {
	item := &domain.DownloadItem{Variant: domain.Single{}}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch typ {
		case protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case itemID:
				item.ID = string(raw)
			case itemURL:
				item.URL = string(raw)
			case itemSource:
				item.Source = domain.Source(raw)
			case itemStatus:
				item.Status = domain.Status(raw)
			case itemFileName:
				item.FileName = string(raw)
			case itemFilePath:
				item.FilePath = string(raw)
			case itemErrorMessage:
				item.ErrorMessage = string(raw)
			case itemPlaylist:
				p, err := decodePlaylist(raw)
				if err != nil {
					return 0, err
				}
				item.Variant = p
			case itemImported:
				m, err := decodeImported(raw)
				if err != nil {
					return 0, err
				}
				item.Variant = m
			}
			return n, nil
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case itemCreatedAt:
				item.CreatedAt = time.Unix(0, int64(v))
			case itemCompletedAt:
				item.CompletedAt = time.Unix(0, int64(v))
			case itemIgnoreArchive:
				item.IgnoreArchive = v != 0
			}
			return n, nil
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return n, nil
			}
			if num == itemProgress {
				item.Progress = math.Float64frombits(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	if item.Status == "" {
		item.Status = domain.StatusPending
	}
	if item.Source == "" {
		item.Source = domain.SourceUnknown
	}
	return item, nil
}

func decodePlaylist(data []byte) (*domain.Playlist, error) {
	p := &domain.Playlist{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch typ {
		case protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case playlistTitle:
				p.Title = string(raw)
			case playlistFile:
				p.Files = append(p.Files, string(raw))
			}
			return n, nil
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, nil
			}
			switch num {
			case playlistTotal:
				p.TotalTracks = int(v)
			case playlistDownloaded:
				p.DownloadedTracks = int(v)
			case playlistSkipped:
				p.SkippedTracks = int(v)
			case playlistCurrent:
				p.CurrentTrack = int(v)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return p, err
}

func decodeImported(data []byte) (*domain.Imported, error) {
	m := &domain.Imported{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return n, nil
		}
		switch num {
		case importedArtwork:
			m.Artwork = append([]byte(nil), raw...)
		case importedMIME:
			m.ArtworkMIME = string(raw)
		case importedArtist:
			m.Artist = string(raw)
		case importedTitle:
			m.Title = string(raw)
		}
		return n, nil
	})
	return m, err
}

// walkFields calls fn for every field in b. fn receives the bytes that follow
// the tag and returns how many of them the value used, or a negative
// protowire length on malformed input.
func walkFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("invalid tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("invalid field %d: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt(b []byte, num protowire.Number, v int) []byte {
	if v <= 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}
