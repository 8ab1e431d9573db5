package models

// ResourceTypeCrunchyroll is the AniDB resource type whose external entity
// points at a Crunchyroll media ID.
const ResourceTypeCrunchyroll = 28

// EpisodeNumber is the decoded epno element. Raw keeps the element text for
// numbers AniDB does not express as integers (S1, C2, ...).
type EpisodeNumber struct {
	Value int         `json:"value"`
	Raw   string      `json:"raw,omitempty"`
	Kind  EpisodeKind `json:"kind"`
}

// IsFirstRegular reports whether the number denotes regular episode 1.
func (n EpisodeNumber) IsFirstRegular() bool {
	return n.Kind == EpisodeKindEpisode && n.Value == 1
}

// Title is an episode title in one language
type Title struct {
	Text     string `json:"text"`
	Language string `json:"lang"`
}

// ExternalResource is one entry of an episode's resources list.
// The identifier tuple is (NumericKey, TextKey); AniDB omits either side for
// some resource types, hence HasNumericKey.
type ExternalResource struct {
	TypeCode      int    `json:"type"`
	NumericKey    int    `json:"numericKey,omitempty"`
	TextKey       string `json:"textKey,omitempty"`
	HasNumericKey bool   `json:"-"`
}

// Episode is a single AniDB episode. Resources is always a plain slice,
// whatever the cardinality of the source document.
type Episode struct {
	ID            int                `json:"id"`
	UpdatedAt     string             `json:"updatedAt,omitempty"`
	Number        EpisodeNumber      `json:"episodeNumber"`
	LengthMinutes int                `json:"lengthMinutes,omitempty"`
	AirDate       string             `json:"airDate,omitempty"`
	Titles        []Title            `json:"titles,omitempty"`
	Summary       string             `json:"summary,omitempty"`
	Resources     []ExternalResource `json:"resources"`
}

// Anime is the subset of an AniDB anime document the pipeline consumes
type Anime struct {
	ID       int       `json:"id"`
	Episodes []Episode `json:"episodes"`
}
