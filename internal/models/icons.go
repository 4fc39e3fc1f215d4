package models

import (
	"github.com/megacloud/megacloud-cli/internal/mimetype"
)

// categoryIcons is indexed by Category; its length is tied to the enum so a
// new category without an icon fails to compile.
var categoryIcons = [numCategories + 1]string{
	CategoryImages:    "🖼",
	CategoryDocuments: "📄",
	CategoryVideos:    "🎬",
	CategoryAudio:     "🎵",
	CategoryOther:     "📦",
	CategoryAll:       "🗂",
}

// Icon returns the glyph shown next to the category.
func (c Category) Icon() string {
	if c < 0 || int(c) > numCategories {
		return categoryIcons[CategoryOther]
	}
	return categoryIcons[c]
}

var familyIcons = map[mimetype.Family]string{
	mimetype.FamilyGeneric:  "📦",
	mimetype.FamilyImage:    categoryIcons[CategoryImages],
	mimetype.FamilyVideo:    categoryIcons[CategoryVideos],
	mimetype.FamilyAudio:    categoryIcons[CategoryAudio],
	mimetype.FamilyText:     "📝",
	mimetype.FamilyDocument: categoryIcons[CategoryDocuments],
	mimetype.FamilyArchive:  "🗜",
}

// FileIcon picks a glyph from the file name's extension.
func FileIcon(name string) string {
	return familyIcons[mimetype.FamilyOf(mimetype.FromName(name))]
}
