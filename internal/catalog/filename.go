package catalog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PathInfo is the metadata recovered from a file's location. Zero values mean
// the path did not say.
type PathInfo struct {
	Band  string
	Date  string
	Venue string
	Set   string
	Title string
	Disc  int
	Track int
}

var (
	// gd1977-05-08d1t01, ph97-11-22t04
	compactPattern = regexp.MustCompile(`(?i)^([a-z]+)(\d{4}|\d{2})-(\d{2})-(\d{2})(?:d(\d+))?(?:t(\d+))?(?:\..+)?$`)
	// "1977-05-08 Barton Hall, Cornell University"
	dateVenuePattern = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\s+(.+)`)
	// "d1t03 - Scarlet Begonias", "t12"
	discTrackPattern = regexp.MustCompile(`(?i)^(?:d(\d+))?t(\d+)(?:\s*[-–]\s*(.+))?$`)
	// "Set II", "set 2", "Encore"
	setDirPattern       = regexp.MustCompile(`(?i)^(?:set\s+(i{1,3}|[1-3]|encore)|(encore))$`)
	genericDatePattern  = regexp.MustCompile(`(\d{4})[./-](\d{2})[./-](\d{2})`)
	genericTrackPattern = regexp.MustCompile(`^(\d{1,3})\s*[.\-–]\s*(.+)$`)
)

// ParsePath extracts band, date, venue, set, disc, track and title from a
// path. The first matching convention wins: a compact archive.org file name
// is taken as complete, otherwise directory components and then the file
// name are examined.
func ParsePath(path string, bands *Registry) PathInfo {
	var info PathInfo
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if m := compactPattern.FindStringSubmatch(stem); m != nil {
		if date, ok := makeDate(m[2], m[3], m[4]); ok {
			info.Band, _ = bands.Lookup(m[1])
			info.Date = date
			info.Disc = atoi(m[5])
			info.Track = atoi(m[6])
			return info
		}
	}

	dirs := splitDirs(path)
	info.Band = bandFromDirs(dirs, bands)

	for _, dir := range dirs {
		if m := dateVenuePattern.FindStringSubmatch(dir); m != nil {
			if date, ok := makeDate(m[1], m[2], m[3]); ok {
				info.Date = date
				info.Venue = strings.TrimSpace(m[4])
				break
			}
		}
	}
	for _, dir := range dirs {
		if m := setDirPattern.FindStringSubmatch(strings.TrimSpace(dir)); m != nil {
			info.Set = setName(m[1] + m[2])
			break
		}
	}

	if m := discTrackPattern.FindStringSubmatch(stem); m != nil {
		info.Disc = atoi(m[1])
		info.Track = atoi(m[2])
		info.Title = strings.TrimSpace(m[3])
		return info
	}

	if info.Date == "" {
		for _, m := range genericDatePattern.FindAllStringSubmatch(filepath.ToSlash(path), -1) {
			if date, ok := makeDate(m[1], m[2], m[3]); ok {
				info.Date = date
				break
			}
		}
	}
	if m := genericTrackPattern.FindStringSubmatch(stem); m != nil {
		info.Track = atoi(m[1])
		info.Title = strings.TrimSpace(m[2])
	}
	return info
}

func splitDirs(path string) []string {
	dir := filepath.ToSlash(filepath.Dir(path))
	var out []string
	for _, part := range strings.Split(dir, "/") {
		if part != "" && part != "." && part != ".." {
			out = append(out, part)
		}
	}
	return out
}

func bandFromDirs(dirs []string, bands *Registry) string {
	for _, dir := range dirs {
		if name, ok := bands.Lookup(dir); ok {
			return name
		}
	}
	for _, dir := range dirs {
		if name, ok := bands.Match(dir); ok {
			return name
		}
	}
	return ""
}

// makeDate validates and formats a calendar date. Two-digit years are taken
// as 19xx from 50 upward and 20xx below.
func makeDate(year, month, day string) (string, bool) {
	if len(year) == 2 {
		yy := atoi(year)
		if yy >= 50 {
			year = "19" + year
		} else {
			year = "20" + year
		}
	}
	date := fmt.Sprintf("%s-%s-%s", year, month, day)
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return "", false
	}
	return date, true
}

func setName(raw string) string {
	switch strings.ToLower(raw) {
	case "1", "i":
		return "I"
	case "2", "ii":
		return "II"
	case "3", "iii":
		return "III"
	default:
		return cases.Title(language.English).String(strings.ToLower(raw))
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
