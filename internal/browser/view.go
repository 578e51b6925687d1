package browser

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/clouddrive/drive/internal/constants"
	"github.com/clouddrive/drive/internal/models"
)

// SortKey selects the ordering of the derived view.
type SortKey string

const (
	SortByName SortKey = "by-name"
	SortByDate SortKey = "by-date"
)

// ParseSortKey accepts "name", "by-name", "date" and "by-date".
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "by-name":
		return SortByName, true
	case "date", "by-date":
		return SortByDate, true
	default:
		return "", false
	}
}

// Filter keeps the resources whose name contains query, ignoring case.
// An empty query keeps everything.
func Filter(items []models.Resource, query string) []models.Resource {
	out := make([]models.Resource, 0, len(items))
	if query == "" {
		return append(out, items...)
	}
	needle := strings.ToLower(query)
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Sort orders items in place.
//
// by-name compares names with the collation rules of tag, falling back to ID
// for names that collate equal. by-date is newest first with ID ascending on
// equal timestamps.
func Sort(items []models.Resource, key SortKey, tag language.Tag) {
	switch key {
	case SortByName:
		// Collators keep scratch buffers and are not safe for concurrent use.
		col := collate.New(tag)
		sort.SliceStable(items, func(i, j int) bool {
			if c := col.CompareString(items[i].Name, items[j].Name); c != 0 {
				return c < 0
			}
			return items[i].ID < items[j].ID
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].CreatedAt, items[j].CreatedAt
			if !a.Equal(b) {
				return a.After(b)
			}
			return items[i].ID < items[j].ID
		})
	}
}

// Project derives the visible sequence: filter by query, then sort.
func Project(items []models.Resource, query string, key SortKey, tag language.Tag) []models.Resource {
	view := Filter(items, query)
	Sort(view, key, tag)
	return view
}

// Recent returns the first non-folder entries of an already projected view.
func Recent(view []models.Resource) []models.Resource {
	out := make([]models.Resource, 0, constants.RecentFilesLimit)
	for _, item := range view {
		if item.IsFolder {
			continue
		}
		out = append(out, item)
		if len(out) == constants.RecentFilesLimit {
			break
		}
	}
	return out
}
