package catalog_test

import (
	"testing"

	"setbreak/internal/catalog"
	"setbreak/internal/config"
)

func TestParsePathConventions(t *testing.T) {
	bands := catalog.NewRegistry(nil)
	cases := []struct {
		path string
		want catalog.PathInfo
	}{
		{
			path: "gd1977-05-08d1t01.shn",
			want: catalog.PathInfo{Band: "Grateful Dead", Date: "1977-05-08", Disc: 1, Track: 1},
		},
		{
			path: "ph1997-11-22t04.flac",
			want: catalog.PathInfo{Band: "Phish", Date: "1997-11-22", Track: 4},
		},
		{
			path: "gd77-05-08d2t03.flac",
			want: catalog.PathInfo{Band: "Grateful Dead", Date: "1977-05-08", Disc: 2, Track: 3},
		},
		{
			path: "zz2001-04-01t02.flac",
			want: catalog.PathInfo{Date: "2001-04-01", Track: 2},
		},
		{
			path: "Grateful Dead/1977/1977-05-08 Barton Hall/d1t01 - Scarlet Begonias.mp3",
			want: catalog.PathInfo{
				Band:  "Grateful Dead",
				Date:  "1977-05-08",
				Venue: "Barton Hall",
				Disc:  1,
				Track: 1,
				Title: "Scarlet Begonias",
			},
		},
		{
			path: "Phish/1997.11.22/Set II/04 - Tweezer.flac",
			want: catalog.PathInfo{Band: "Phish", Date: "1997-11-22", Set: "II", Track: 4, Title: "Tweezer"},
		},
		{
			path: "Umphrey's McGee 2005/encore/01. Jimmy Stewart.mp3",
			want: catalog.PathInfo{Band: "Umphrey's McGee", Set: "Encore", Track: 1, Title: "Jimmy Stewart"},
		},
		{
			path: "wsp/set 2/t07.flac",
			want: catalog.PathInfo{Band: "Widespread Panic", Set: "II", Track: 7},
		},
		{
			path: "xx1999-13-40t01.flac",
			want: catalog.PathInfo{},
		},
		{
			path: "misc/Some Song.mp3",
			want: catalog.PathInfo{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got := catalog.ParsePath(tc.path, bands)
			if got != tc.want {
				t.Fatalf("ParsePath(%q) = %+v, want %+v", tc.path, got, tc.want)
			}
		})
	}
}

func TestRegistryMergesConfiguredBands(t *testing.T) {
	bands := catalog.NewRegistry([]config.Band{
		{Name: "Goose", Aliases: []string{"gs"}},
		{Name: "Grizzly Dead", Aliases: []string{"GD"}},
	})

	if name, ok := bands.Lookup("GS"); !ok || name != "Goose" {
		t.Fatalf("Lookup(GS) = %q, %v", name, ok)
	}
	if name, ok := bands.Lookup("gd"); !ok || name != "Grizzly Dead" {
		t.Fatalf("configured alias should override built-in, got %q", name)
	}
	if name, ok := bands.Match("Grateful Dead 1977 Spring Tour"); !ok || name != "Grateful Dead" {
		t.Fatalf("Match prefix = %q, %v", name, ok)
	}
	if name, ok := bands.Match("Billy Joel"); ok {
		t.Fatalf("short alias must not prefix-match, got %q", name)
	}
	if _, ok := bands.Lookup("unknown"); ok {
		t.Fatal("unknown code resolved")
	}
}

func TestParsePathWithoutRegistry(t *testing.T) {
	got := catalog.ParsePath("gd1977-05-08t01.flac", nil)
	if got.Band != "" || got.Date != "1977-05-08" || got.Track != 1 {
		t.Fatalf("unexpected parse without registry: %+v", got)
	}
}
