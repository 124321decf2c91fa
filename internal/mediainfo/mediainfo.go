// Package mediainfo inspects cached media files. It only ever reads:
// cached bytes are published verbatim and never rewritten.
package mediainfo

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"

	"github.com/dmaytorres/trackvault/internal/domain"
)

// Info is what a probe of a cached file yields: the quality descriptor for
// the cache entry plus whatever identifying tags are embedded.
type Info struct {
	Quality domain.QualityDescriptor
	Title   string
	Artist  string
	Album   string
}

// Probe reads format and embedded metadata from the file at path.
// Unsupported formats still get a format-only descriptor.
func Probe(path string) (*Info, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return probeFLAC(path)
	case ".mp3":
		return probeMP3(path)
	case ".mp4", ".m4a":
		return &Info{Quality: domain.QualityDescriptor{Format: "AAC"}}, nil
	default:
		return &Info{Quality: domain.QualityDescriptor{Format: strings.TrimPrefix(strings.ToUpper(filepath.Ext(path)), ".")}}, nil
	}
}

// ExtractArt returns embedded cover art bytes and their MIME type, or
// domain.ErrNotFound when the file carries none.
func ExtractArt(path string) ([]byte, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return extractFLACArt(path)
	case ".mp3":
		return extractMP3Art(path)
	default:
		return nil, "", domain.ErrNotFound
	}
}

func probeFLAC(path string) (*Info, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	info := &Info{Quality: domain.QualityDescriptor{Format: "FLAC"}}

	si, err := f.GetStreamInfo()
	if err == nil {
		info.Quality.BitDepth = si.BitDepth
		info.Quality.SampleRate = si.SampleRate
		info.Quality.Channels = si.ChannelCount
	}

	for _, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		vc, parseErr := flacvorbis.ParseFromMetaDataBlock(*block)
		if parseErr != nil {
			continue
		}
		info.Title = firstComment(vc, flacvorbis.FIELD_TITLE)
		info.Artist = firstComment(vc, flacvorbis.FIELD_ARTIST)
		info.Album = firstComment(vc, flacvorbis.FIELD_ALBUM)
		break
	}

	return info, nil
}

func firstComment(vc *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := vc.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func extractFLACArt(path string) ([]byte, string, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	for _, block := range f.Meta {
		if block.Type != flac.Picture {
			continue
		}
		pic, parseErr := flacpicture.ParseFromMetaDataBlock(*block)
		if parseErr != nil {
			continue
		}
		return pic.ImageData, pic.MIME, nil
	}

	return nil, "", domain.ErrNotFound
}

func probeMP3(path string) (*Info, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		// Not every MP3 carries an ID3 header.
		return &Info{Quality: domain.QualityDescriptor{Format: "MP3"}}, nil
	}
	defer tag.Close()

	return &Info{
		Quality: domain.QualityDescriptor{Format: "MP3"},
		Title:   tag.Title(),
		Artist:  tag.Artist(),
		Album:   tag.Album(),
	}, nil
}

func extractMP3Art(path string) ([]byte, string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open MP3 tags: %w", err)
	}
	defer tag.Close()

	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	for _, frame := range frames {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		return pic.Picture, pic.MimeType, nil
	}

	return nil, "", domain.ErrNotFound
}
