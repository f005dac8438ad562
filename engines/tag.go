package engines

import (
	"fmt"
	"strings"
)

// Tag identifies a search engine. Tags are bit flags so a set of engines can
// be carried as a single value.
type Tag uint32

const None Tag = 0

const (
	SauceNao Tag = 1 << iota
	ImgOps
	GoogleImages
	TinEye
	Iqdb
	TraceMoe
	KarmaDecay
	Yandex
	Bing
)

// All is every engine imgsx knows about.
const All = SauceNao | ImgOps | GoogleImages | TinEye | Iqdb | TraceMoe | KarmaDecay | Yandex | Bing

// tagOrder is the canonical order used when expanding a mask.
var tagOrder = []Tag{SauceNao, ImgOps, GoogleImages, TinEye, Iqdb, TraceMoe, KarmaDecay, Yandex, Bing}

var tagNames = map[Tag]string{
	SauceNao:     "SauceNao",
	ImgOps:       "ImgOps",
	GoogleImages: "GoogleImages",
	TinEye:       "TinEye",
	Iqdb:         "Iqdb",
	TraceMoe:     "TraceMoe",
	KarmaDecay:   "KarmaDecay",
	Yandex:       "Yandex",
	Bing:         "Bing",
}

// String returns the tag name, or a comma-separated list for a mask.
func (t Tag) String() string {
	switch t {
	case None:
		return "None"
	case All:
		return "All"
	}
	if name, ok := tagNames[t]; ok {
		return name
	}
	parts := t.Split()
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = tagNames[p]
	}
	return strings.Join(names, ", ")
}

// Has reports whether every flag of other is set in t.
func (t Tag) Has(other Tag) bool {
	return other != None && t&other == other
}

// Split expands a mask into single tags in canonical order.
func (t Tag) Split() []Tag {
	var tags []Tag
	for _, tag := range tagOrder {
		if t&tag != 0 {
			tags = append(tags, tag)
		}
	}
	return tags
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	tags, err := ParseTags(string(text))
	if err != nil {
		return err
	}
	*t = Mask(tags)
	return nil
}

// ParseTag parses a single engine name, case-insensitively.
func ParseTag(name string) (Tag, error) {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "all":
		return All, nil
	case "none", "":
		return None, nil
	}
	for tag, n := range tagNames {
		if strings.EqualFold(n, name) {
			return tag, nil
		}
	}
	return None, fmt.Errorf("unknown engine: %s (available: %s)", name, TagNames())
}

// ParseTags parses a comma-separated list of engine names. The order of the
// input is kept and duplicates are dropped; "All" expands in canonical order.
func ParseTags(s string) ([]Tag, error) {
	return ParseTagList(strings.Split(s, ","))
}

// ParseTagList is ParseTags for an already split list.
func ParseTagList(names []string) ([]Tag, error) {
	var (
		tags []Tag
		seen Tag
	)
	for _, name := range names {
		tag, err := ParseTag(name)
		if err != nil {
			return nil, err
		}
		for _, single := range tag.Split() {
			if seen&single != 0 {
				continue
			}
			seen |= single
			tags = append(tags, single)
		}
	}
	return tags, nil
}

// Mask folds a list of tags into one value.
func Mask(tags []Tag) Tag {
	var m Tag
	for _, t := range tags {
		m |= t
	}
	return m
}

// TagNames lists all engine names in canonical order.
func TagNames() string {
	names := make([]string, len(tagOrder))
	for i, t := range tagOrder {
		names[i] = tagNames[t]
	}
	return strings.Join(names, ", ")
}
