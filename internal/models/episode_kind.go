package models

import "strings"

// EpisodeKind is the AniDB episode type carried by the epno "type" attribute
type EpisodeKind int

const (
	EpisodeKindUnknown EpisodeKind = iota
	EpisodeKindEpisode
	EpisodeKindUnknown2
	EpisodeKindOpeningOrEnding
)

// String returns the string representation of the episode kind
func (k EpisodeKind) String() string {
	switch k {
	case EpisodeKindEpisode:
		return "episode"
	case EpisodeKindUnknown2:
		return "unknown2"
	case EpisodeKindOpeningOrEnding:
		return "opening_or_ending"
	default:
		return "unknown"
	}
}

// ParseEpisodeKind converts a kind name back to EpisodeKind
func ParseEpisodeKind(kind string) EpisodeKind {
	switch strings.ToLower(kind) {
	case "episode":
		return EpisodeKindEpisode
	case "unknown2":
		return EpisodeKindUnknown2
	case "opening_or_ending":
		return EpisodeKindOpeningOrEnding
	default:
		return EpisodeKindUnknown
	}
}

// MarshalJSON implements json.Marshaler interface
func (k EpisodeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler interface
func (k *EpisodeKind) UnmarshalJSON(data []byte) error {
	*k = ParseEpisodeKind(strings.Trim(string(data), `"`))
	return nil
}
