package models

import (
	"encoding/json"
	"testing"
)

func TestCategoryTablesComplete(t *testing.T) {
	for i := 0; i <= numCategories; i++ {
		c := Category(i)
		if categoryNames[c] == "" {
			t.Errorf("category %d has no name", i)
		}
		if categoryIcons[c] == "" {
			t.Errorf("category %s has no icon", c)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := map[string]Category{
		"Images":       CategoryImages,
		"documents":    CategoryDocuments,
		" Videos ":     CategoryVideos,
		"AUDIO":        CategoryAudio,
		"Other":        CategoryOther,
		"Spreadsheets": CategoryOther,
		"":             CategoryOther,
	}
	for in, want := range tests {
		if got := ParseCategory(in); got != want {
			t.Errorf("ParseCategory(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFilter(t *testing.T) {
	if c, err := ParseFilter("all"); err != nil || c != CategoryAll {
		t.Errorf("ParseFilter(all) = %v, %v", c, err)
	}
	if c, err := ParseFilter(""); err != nil || c != CategoryAll {
		t.Errorf("ParseFilter(\"\") = %v, %v", c, err)
	}
	if c, err := ParseFilter("images"); err != nil || c != CategoryImages {
		t.Errorf("ParseFilter(images) = %v, %v", c, err)
	}
	if _, err := ParseFilter("music"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestFileRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FileRecord
		wantErr bool
	}{
		{
			name:  "string id",
			input: `{"file_id":"abc","display_filename":"a.png","category":"Images","size_mb":1.5}`,
			want:  FileRecord{FileID: "abc", DisplayFilename: "a.png", Category: CategoryImages, SizeMB: 1.5},
		},
		{
			name:  "numeric id",
			input: `{"file_id":42,"display_filename":"b.pdf","category":"Documents","size_mb":0}`,
			want:  FileRecord{FileID: "42", DisplayFilename: "b.pdf", Category: CategoryDocuments},
		},
		{
			name:  "unknown category",
			input: `{"file_id":"x","display_filename":"c.bin","category":"Blobs","size_mb":2}`,
			want:  FileRecord{FileID: "x", DisplayFilename: "c.bin", Category: CategoryOther, SizeMB: 2},
		},
		{name: "missing id", input: `{"display_filename":"d"}`, wantErr: true},
		{name: "negative size", input: `{"file_id":"e","size_mb":-1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got FileRecord
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDirectoryView_FilterPartition(t *testing.T) {
	files := []FileRecord{
		{FileID: "1", DisplayFilename: "a.png", Category: CategoryImages},
		{FileID: "2", DisplayFilename: "b.pdf", Category: CategoryDocuments},
		{FileID: "3", DisplayFilename: "c.png", Category: CategoryImages},
		{FileID: "4", DisplayFilename: "d.zip", Category: CategoryOther},
	}
	view := NewDirectoryView(files, map[Category][]FileRecord{
		CategoryImages:    {files[0], files[2]},
		CategoryDocuments: {files[1]},
		CategoryOther:     {files[3]},
	})

	sum := 0
	for _, c := range Categories {
		sum += len(view.Filter(c))
	}
	if all := len(view.Filter(CategoryAll)); all != sum {
		t.Errorf("All has %d files, categories sum to %d", all, sum)
	}

	if got := view.Filter(CategoryVideos); got == nil || len(got) != 0 {
		t.Errorf("missing partition should be empty, got %v", got)
	}

	counts := view.Counts()
	if counts[CategoryImages] != 2 || counts[CategoryAudio] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}

	if rec, ok := view.Find("2"); !ok || rec.DisplayFilename != "b.pdf" {
		t.Errorf("Find(2) = %+v, %v", rec, ok)
	}
	if _, ok := view.Find("99"); ok {
		t.Error("Find should miss unknown id")
	}
}

func TestStatsSnapshot_UsedPercent(t *testing.T) {
	s := StatsSnapshot{StorageUsedMB: 25, TotalCapacityMB: 100}
	if got := s.UsedPercent(); got != 25 {
		t.Errorf("UsedPercent = %v", got)
	}
	if got := (StatsSnapshot{StorageUsedMB: 5}).UsedPercent(); got != 0 {
		t.Errorf("unknown capacity should report 0, got %v", got)
	}
}

func TestFileIcon(t *testing.T) {
	if got := FileIcon("photo.jpg"); got != CategoryImages.Icon() {
		t.Errorf("FileIcon(jpg) = %q", got)
	}
	if got := FileIcon("report.pdf"); got != CategoryDocuments.Icon() {
		t.Errorf("FileIcon(pdf) = %q", got)
	}
	if got := FileIcon("README"); got == "" {
		t.Error("FileIcon should never be empty")
	}
}
