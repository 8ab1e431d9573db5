package models

// Relation holds the identifiers of one title across the databases known to
// the relations service. Any of them may be absent.
type Relation struct {
	AniList     *int `json:"anilist"`
	AniDB       *int `json:"anidb"`
	MyAnimeList *int `json:"myanimelist"`
	Kitsu       *int `json:"kitsu"`
}

// AniDBID returns the AniDB identifier and whether the relation carries one.
func (r *Relation) AniDBID() (int, bool) {
	if r == nil || r.AniDB == nil {
		return 0, false
	}
	return *r.AniDB, true
}
