// Package episodes picks the first regular episode of an AniDB anime and reads
// the Crunchyroll cross-reference out of its resources.
package episodes

import "github.com/Belphemur/AniBridge/internal/models"

// Selector chooses the canonical first episode.
//
// AniDB only sends a single episode element for titles that have exactly one
// episode, so by default a one-element list is taken as the first episode
// without checking its number or kind. Strict turns that shortcut off and
// applies the regular-episode-1 predicate to every list.
type Selector struct {
	Strict bool
}

// SelectFirstEpisode returns the first regular episode (kind episode, number 1).
func (s Selector) SelectFirstEpisode(eps []models.Episode) (*models.Episode, bool) {
	if len(eps) == 1 && !s.Strict {
		return &eps[0], true
	}

	for i := range eps {
		if eps[i].Number.IsFirstRegular() {
			return &eps[i], true
		}
	}
	return nil, false
}

// SelectFirstEpisode applies the default Selector.
func SelectFirstEpisode(eps []models.Episode) (*models.Episode, bool) {
	return Selector{}.SelectFirstEpisode(eps)
}

// ExtractCrossReference returns the numeric key of the first Crunchyroll
// (type 28) resource of the episode. Only that first entry is considered: if
// it carries no numeric key there is no cross-reference.
func ExtractCrossReference(ep *models.Episode) (int, bool) {
	if ep == nil {
		return 0, false
	}
	for _, res := range ep.Resources {
		if res.TypeCode != models.ResourceTypeCrunchyroll {
			continue
		}
		if !res.HasNumericKey {
			return 0, false
		}
		return res.NumericKey, true
	}
	return 0, false
}
