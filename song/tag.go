package song

// TagType identifies a tag family attached to a song.
type TagType string

const (
	Series       TagType = "series"
	Singers      TagType = "singers"
	SongTypes    TagType = "songtypes"
	Creators     TagType = "creators"
	Languages    TagType = "langs"
	Authors      TagType = "authors"
	Misc         TagType = "misc"
	Groups       TagType = "groups"
	Families     TagType = "families"
	Origins      TagType = "origins"
	Genres       TagType = "genres"
	Platforms    TagType = "platforms"
	Versions     TagType = "versions"
	Franchises   TagType = "franchises"
	SingerGroups TagType = "singergroups"
	Songwriters  TagType = "songwriters"
)

// TagTypes lists every tag family in a stable order.
var TagTypes = []TagType{
	Series, Franchises, Singers, SingerGroups, SongTypes, Creators, Songwriters,
	Languages, Authors, Groups, Families, Origins, Genres, Platforms, Versions, Misc,
}

// Tag is a named label (series, singer...) with its localized names and aliases.
type Tag struct {
	TID     string            `json:"tid"`
	Name    string            `json:"name"`
	I18n    map[string]string `json:"i18n,omitempty"`
	Aliases []string          `json:"aliases,omitempty"`
}

// Localized returns the tag name in lang, falling back to eng then to the raw name.
func (t Tag) Localized(lang string) string {
	if n, ok := t.I18n[lang]; ok && n != "" {
		return n
	}
	if n, ok := t.I18n["eng"]; ok && n != "" {
		return n
	}
	return t.Name
}
