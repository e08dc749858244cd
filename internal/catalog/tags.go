package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// Tags holds the embedded metadata of an audio file.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Date   string
	Venue  string
	Track  int
	Disc   int
}

// raw frame names that carry a full recording date or the venue, across ID3,
// Vorbis comments and MP4 atoms.
var (
	dateFrames  = []string{"TDRC", "TDOR", "TYER", "DATE", "date", "©day"}
	venueFrames = []string{"TIT1", "GROUPING", "grouping", "©grp", "VENUE", "venue"}
)

// errNoTags is returned when the file carries no readable tag block.
var errNoTags = errors.New("no tags")

// ReadTags reads embedded tags. Formats without tag support (shn, wav) return
// errNoTags, which callers treat as empty metadata.
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Tags{}, errNoTags
		}
		return Tags{}, fmt.Errorf("read tags: %w", err)
	}

	out := Tags{
		Title:  strings.TrimSpace(md.Title()),
		Artist: strings.TrimSpace(md.Artist()),
		Album:  strings.TrimSpace(md.Album()),
	}
	if out.Artist == "" {
		out.Artist = strings.TrimSpace(md.AlbumArtist())
	}
	out.Track, _ = md.Track()
	out.Disc, _ = md.Disc()

	raw := md.Raw()
	if value := rawString(raw, dateFrames); value != "" {
		if m := genericDatePattern.FindStringSubmatch(value); m != nil {
			if date, ok := makeDate(m[1], m[2], m[3]); ok {
				out.Date = date
			}
		}
	}
	out.Venue = rawString(raw, venueFrames)
	return out, nil
}

func rawString(raw map[string]interface{}, keys []string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case fmt.Stringer:
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
