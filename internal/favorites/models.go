package favorites

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/staykeep/internal/ident"
)

// ExportVersion is the version written into export documents.
const ExportVersion = "1.0"

// Entry is a favorited hotel.
type Entry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Location string    `json:"location"`
	AddedAt  time.Time `json:"addedAt"`

	// Extra carries provider-specific fields (price, rating, image, ...)
	// that this package stores but never interprets.
	Extra map[string]any `json:"extra,omitempty"`
}

// NewEntry builds an entry from an id in either string or numeric form.
func NewEntry(id any, name, location string) Entry {
	return Entry{
		ID:       ident.Normalize(id),
		Name:     name,
		Location: location,
	}
}

// UnmarshalJSON accepts ids as strings or numbers, addedAt as ISO-8601 or
// epoch milliseconds, and folds unknown top-level keys into Extra so that
// records written by older clients keep their provider fields.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Entry
	if raw, ok := fields["id"]; ok {
		id, err := ident.FromJSON(raw)
		if err != nil {
			return fmt.Errorf("favorite id: %w", err)
		}
		out.ID = id
		delete(fields, "id")
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &out.Name); err != nil {
			return fmt.Errorf("favorite name: %w", err)
		}
		delete(fields, "name")
	}
	if raw, ok := fields["location"]; ok {
		if err := json.Unmarshal(raw, &out.Location); err != nil {
			return fmt.Errorf("favorite location: %w", err)
		}
		delete(fields, "location")
	}
	if raw, ok := fields["addedAt"]; ok {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return fmt.Errorf("favorite addedAt: %w", err)
		}
		out.AddedAt = ts
		delete(fields, "addedAt")
	}
	if raw, ok := fields["extra"]; ok {
		if err := json.Unmarshal(raw, &out.Extra); err != nil {
			return fmt.Errorf("favorite extra: %w", err)
		}
		delete(fields, "extra")
	}

	for key, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("favorite %s: %w", key, err)
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any, len(fields))
		}
		out.Extra[key] = v
	}

	*e = out
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if strings.TrimSpace(s) == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Metadata is the diagnostics record persisted next to the favorites.
type Metadata struct {
	LastUpdated int64 `json:"lastUpdated"` // epoch milliseconds
	Count       int   `json:"count"`
}

// SortBy names a sorted view of the collection.
type SortBy string

const (
	SortRecent   SortBy = "recent"
	SortName     SortBy = "name"
	SortLocation SortBy = "location"
)

// ParseSortBy validates a sort criterion.
func ParseSortBy(s string) (SortBy, error) {
	switch SortBy(strings.ToLower(strings.TrimSpace(s))) {
	case SortRecent, "":
		return SortRecent, nil
	case SortName:
		return SortName, nil
	case SortLocation:
		return SortLocation, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

// UnknownLocation groups favorites without a location in Stats.
const UnknownLocation = "Unknown"

// Stats is derived from the collection on demand and never stored.
type Stats struct {
	TotalFavorites      int            `json:"totalFavorites"`
	OldestFavorite      *Entry         `json:"oldestFavorite,omitempty"`
	NewestFavorite      *Entry         `json:"newestFavorite,omitempty"`
	FavoritesByLocation map[string]int `json:"favoritesByLocation"`
}

// ExportDocument is the import/export wire format.
type ExportDocument struct {
	Favorites  []Entry   `json:"favorites"`
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
}
