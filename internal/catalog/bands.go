package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"setbreak/internal/config"
)

// builtinBands covers the common archive.org abbreviations.
var builtinBands = []config.Band{
	{Name: "Grateful Dead", Aliases: []string{"gd"}},
	{Name: "Jerry Garcia Band", Aliases: []string{"jg", "jgb"}},
	{Name: "Phish", Aliases: []string{"ph"}},
	{Name: "Widespread Panic", Aliases: []string{"wsp", "panic"}},
	{Name: "moe.", Aliases: []string{"moe"}},
	{Name: "Sound Tribe Sector 9", Aliases: []string{"sts9", "s9"}},
	{Name: "Umphrey's McGee", Aliases: []string{"um", "ump"}},
	{Name: "Disco Biscuits", Aliases: []string{"bisco", "db"}},
	{Name: "Ween"},
	{Name: "Gov't Mule", Aliases: []string{"mule"}},
	{Name: "Allman Brothers Band", Aliases: []string{"abb", "abband"}},
	{Name: "Dark Star Orchestra", Aliases: []string{"dso"}},
	{Name: "Led Zeppelin", Aliases: []string{"lz", "led"}},
	{Name: "Goose"},
	{Name: "Billy Strings", Aliases: []string{"billy", "bs", "bsco"}},
	{Name: "King Gizzard & the Lizard Wizard", Aliases: []string{"kg", "kglw", "king gizzard"}},
	{Name: "Trey Anastasio Band", Aliases: []string{"trey", "tab"}},
	{Name: "Lotus"},
	{Name: "Joe Russo's Almost Dead", Aliases: []string{"jrad"}},
	{Name: "String Cheese Incident", Aliases: []string{"sci"}},
	{Name: "Leftover Salmon", Aliases: []string{"lmg", "lemon"}},
	{Name: "Medeski Martin & Wood", Aliases: []string{"mmw", "medeski martin"}},
}

// Registry resolves band codes and directory names to canonical band names.
type Registry struct {
	byAlias map[string]string
	// names holds folded full names and multi-word aliases, longest first,
	// for prefix matching directory names like "Grateful Dead 1977".
	names []string
}

// NewRegistry merges the built-in abbreviations with configured bands.
// Configured entries win when an alias collides.
func NewRegistry(bands []config.Band) *Registry {
	r := &Registry{byAlias: make(map[string]string)}
	prefixes := make(map[string]struct{})
	add := func(list []config.Band) {
		for _, band := range list {
			name := strings.TrimSpace(band.Name)
			if name == "" {
				continue
			}
			r.byAlias[fold(name)] = name
			prefixes[fold(name)] = struct{}{}
			for _, alias := range band.Aliases {
				if alias = fold(alias); alias != "" {
					r.byAlias[alias] = name
					if strings.Contains(alias, " ") {
						prefixes[alias] = struct{}{}
					}
				}
			}
		}
	}
	add(builtinBands)
	add(bands)

	for key := range prefixes {
		r.names = append(r.names, key)
	}
	sort.Slice(r.names, func(i, j int) bool {
		if len(r.names[i]) != len(r.names[j]) {
			return len(r.names[i]) > len(r.names[j])
		}
		return r.names[i] < r.names[j]
	})
	return r
}

// Lookup resolves an exact code, alias or full name.
func (r *Registry) Lookup(code string) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.byAlias[fold(code)]
	return name, ok
}

// Match resolves a path component or tag value: an exact alias first, then
// a known name the value starts with.
func (r *Registry) Match(value string) (string, bool) {
	if name, ok := r.Lookup(value); ok {
		return name, true
	}
	if r == nil {
		return "", false
	}
	folded := fold(value)
	for _, key := range r.names {
		if strings.HasPrefix(folded, key) {
			return r.byAlias[key], true
		}
	}
	return "", false
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
