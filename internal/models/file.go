package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the server-assigned file category.
type Category int

const (
	CategoryImages Category = iota
	CategoryDocuments
	CategoryVideos
	CategoryAudio
	CategoryOther

	// CategoryAll is a filter, not a category a file can have.
	CategoryAll
)

// numCategories is the number of real categories (excluding CategoryAll).
const numCategories = int(CategoryAll)

// Categories lists every real category in display order.
var Categories = [numCategories]Category{
	CategoryImages,
	CategoryDocuments,
	CategoryVideos,
	CategoryAudio,
	CategoryOther,
}

var categoryNames = [numCategories + 1]string{
	CategoryImages:    "Images",
	CategoryDocuments: "Documents",
	CategoryVideos:    "Videos",
	CategoryAudio:     "Audio",
	CategoryOther:     "Other",
	CategoryAll:       "All",
}

func (c Category) String() string {
	if c < 0 || int(c) > numCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory parses a server category name. Matching is case-insensitive.
// Unknown names map to CategoryOther so a record always has one category.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), categoryNames[c]) {
			return c
		}
	}
	return CategoryOther
}

// ParseFilter parses a category filter, which may also be "All".
func ParseFilter(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return CategoryAll, nil
	}
	for i, name := range categoryNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Category(i), nil
		}
	}
	return CategoryAll, fmt.Errorf("unknown category %q (want one of Images, Documents, Videos, Audio, Other, All)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

// FileRecord is one file as reported by the directory service. Records are
// never mutated after decoding; a refresh replaces them wholesale.
type FileRecord struct {
	FileID          string   `json:"file_id" csv:"file_id"`
	DisplayFilename string   `json:"display_filename" csv:"display_filename"`
	Category        Category `json:"category" csv:"category"`
	SizeMB          float64  `json:"size_mb" csv:"size_mb"`
}

// UnmarshalJSON accepts numeric or string file ids.
func (f *FileRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		FileID          json.RawMessage `json:"file_id"`
		DisplayFilename string          `json:"display_filename"`
		Category        string          `json:"category"`
		SizeMB          float64         `json:"size_mb"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.FileID)
	if err != nil {
		return fmt.Errorf("file_id: %w", err)
	}
	if raw.SizeMB < 0 {
		return fmt.Errorf("size_mb: negative size %v", raw.SizeMB)
	}

	*f = FileRecord{
		FileID:          id,
		DisplayFilename: raw.DisplayFilename,
		Category:        ParseCategory(raw.Category),
		SizeMB:          raw.SizeMB,
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// DirectoryView is one listing: the ordered files plus the server's
// per-category partition of them.
type DirectoryView struct {
	Files       []FileRecord
	Categorized map[Category][]FileRecord
}

// NewDirectoryView builds a view from a listing. The partition is taken as
// given; a nil partition yields empty categories.
func NewDirectoryView(files []FileRecord, categorized map[Category][]FileRecord) DirectoryView {
	if files == nil {
		files = []FileRecord{}
	}
	if categorized == nil {
		categorized = make(map[Category][]FileRecord, numCategories)
	}
	return DirectoryView{Files: files, Categorized: categorized}
}

// Filter returns the full listing for CategoryAll, else the server partition
// for c (empty when the server sent none).
func (v DirectoryView) Filter(c Category) []FileRecord {
	if c == CategoryAll {
		return v.Files
	}
	if recs, ok := v.Categorized[c]; ok {
		return recs
	}
	return []FileRecord{}
}

// Counts returns the size of each category partition.
func (v DirectoryView) Counts() [numCategories]int {
	var counts [numCategories]int
	for _, c := range Categories {
		counts[c] = len(v.Categorized[c])
	}
	return counts
}

// Find returns the record with the given id.
func (v DirectoryView) Find(fileID string) (FileRecord, bool) {
	for _, f := range v.Files {
		if f.FileID == fileID {
			return f, true
		}
	}
	return FileRecord{}, false
}

// StatsSnapshot is the aggregate storage usage.
type StatsSnapshot struct {
	StorageUsedMB   float64 `json:"storage_used"`
	TotalFiles      int     `json:"total_files"`
	TotalCapacityMB float64 `json:"total_size_mb"`
}

// UsedPercent returns storage used as a percentage of capacity, 0 when unknown.
func (s StatsSnapshot) UsedPercent() float64 {
	if s.TotalCapacityMB <= 0 {
		return 0
	}
	return s.StorageUsedMB / s.TotalCapacityMB * 100
}
