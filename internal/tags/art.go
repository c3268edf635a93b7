// Package tags reads and embeds cover art in audio files.
package tags

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/go-flac"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"

	coverDescription = "Front Cover"
)

// ErrUnsupportedFormat is returned for files that are neither MP3 nor FLAC.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ArtHelper implements core.ArtHelper for MP3 and FLAC files.
type ArtHelper struct{}

func NewArtHelper() *ArtHelper {
	return &ArtHelper{}
}

// HasExistingArt reports whether the file carries an embedded picture.
// Files without any tags have no art.
func (h *ArtHelper) HasExistingArt(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read tags: %w", err)
	}
	return m.Picture() != nil, nil
}

// Embed replaces the front cover of the file with the image at imagePath.
func (h *ArtHelper) Embed(path, imagePath string) error {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(image) == 0 {
		return errors.New("empty image")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return embedMP3(path, image)
	case ".flac":
		return embedFLAC(path, image)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func embedMP3(path string, image []byte) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer t.Close()

	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	t.DeleteFrames(t.CommonID("Attached picture"))
	t.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    detectMimeType(image),
		PictureType: id3v2.PTFrontCover,
		Description: coverDescription,
		Picture:     image,
	})

	if err := t.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}

func embedFLAC(path string, image []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse file: %w", err)
	}

	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+1)
	for _, block := range f.Meta {
		if block.Type != flac.Picture {
			meta = append(meta, block)
		}
	}

	pic, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover,
		coverDescription,
		image,
		detectMimeType(image),
	)
	if err != nil {
		return fmt.Errorf("create picture: %w", err)
	}
	picBlock := pic.Marshal()
	f.Meta = append(meta, &picBlock)

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save file: %w", err)
	}
	return nil
}

func detectMimeType(data []byte) string {
	if http.DetectContentType(data) == mimePNG {
		return mimePNG
	}
	return mimeJPEG
}
