package grouper

import (
	"sort"

	"log-investigator/internal/fingerprint"
	"log-investigator/pkg/models"
)

// GroupAggregator buckets canonical entries by fingerprint and reports
// per-group statistics. Groups are views over the queried entry set; nothing
// is cached between calls.
type GroupAggregator struct {
	fingerprinter *fingerprint.Fingerprinter
}

// NewGroupAggregator creates a new group aggregator
func NewGroupAggregator() *GroupAggregator {
	return &GroupAggregator{
		fingerprinter: fingerprint.NewFingerprinter(),
	}
}

// Group filters the entry set, buckets it by fingerprint, and returns groups
// ordered by descending count (ties broken by group id). Limit truncates the
// returned slice; TotalGroups always reflects the pre-limit distinct count.
func (a *GroupAggregator) Group(entries []models.CanonicalLogEntry, filter models.QueryFilter) models.GroupResult {
	groupMap := make(map[string]*models.Group)

	for _, entry := range entries {
		if !matches(entry, filter) {
			continue
		}

		fp := a.fingerprinter.Fingerprint(entry)
		group, exists := groupMap[fp]
		if !exists {
			groupMap[fp] = &models.Group{
				GroupID:       fp,
				Count:         1,
				Level:         entry.Level,
				Service:       entry.Service,
				SampleMessage: entry.Message,
				FirstSeen:     entry.Timestamp,
				LastSeen:      entry.Timestamp,
			}
			continue
		}

		group.Count++
		if entry.Timestamp.Before(group.FirstSeen) {
			// Earlier member found: it becomes the representative sample
			group.FirstSeen = entry.Timestamp
			group.SampleMessage = entry.Message
		}
		if entry.Timestamp.After(group.LastSeen) {
			group.LastSeen = entry.Timestamp
		}
	}

	groups := make([]models.Group, 0, len(groupMap))
	for _, group := range groupMap {
		groups = append(groups, *group)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].GroupID < groups[j].GroupID
	})

	total := len(groups)
	if filter.Limit > 0 && len(groups) > filter.Limit {
		groups = groups[:filter.Limit]
	}

	return models.GroupResult{Groups: groups, TotalGroups: total}
}

// matches applies the service/level/since filter to one entry
func matches(entry models.CanonicalLogEntry, filter models.QueryFilter) bool {
	if filter.Service != "" && entry.Service != filter.Service {
		return false
	}
	if filter.Level != "" && entry.Level != filter.Level {
		return false
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	return true
}
