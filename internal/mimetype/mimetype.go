// Package mimetype resolves MIME types from file names and content.
package mimetype

import (
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/megacloud/megacloud-cli/internal/constants"
)

func init() {
	// Text formats have no magic numbers, so filetype only knows them once
	// registered by extension.
	filetype.AddType("jpeg", "image/jpeg")
	filetype.AddType("txt", "text/plain")
	filetype.AddType("log", "text/plain")
	filetype.AddType("csv", "text/csv")
	filetype.AddType("md", "text/markdown")
	filetype.AddType("json", "application/json")
	filetype.AddType("xml", "application/xml")
}

// FromName returns the MIME type implied by name's extension, or
// application/octet-stream.
func FromName(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return constants.DefaultMIMEType
	}
	t := filetype.GetType(ext)
	if t == filetype.Unknown || t.MIME.Value == "" {
		return constants.DefaultMIMEType
	}
	return t.MIME.Value
}

// Sniff inspects the leading bytes of data. It returns
// application/octet-stream when the format is not recognized.
func Sniff(data []byte) string {
	t, err := filetype.Match(data)
	if err != nil || t == filetype.Unknown {
		return constants.DefaultMIMEType
	}
	return t.MIME.Value
}

// Resolve picks the best MIME type for a payload: the declared type unless
// it is empty or the generic default, then content sniffing, then the name.
func Resolve(declared, name string, data []byte) string {
	declared = Base(declared)
	if declared != "" && declared != constants.DefaultMIMEType {
		return declared
	}
	if sniffed := Sniff(data); sniffed != constants.DefaultMIMEType {
		return sniffed
	}
	return FromName(name)
}

// Base strips parameters such as "; charset=utf-8" and lowercases.
func Base(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Family returns the kind of file for icon selection.
type Family int

const (
	FamilyGeneric Family = iota
	FamilyImage
	FamilyVideo
	FamilyAudio
	FamilyText
	FamilyDocument
	FamilyArchive
)

// FamilyOf groups a MIME type.
func FamilyOf(mime string) Family {
	mime = Base(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return FamilyImage
	case strings.HasPrefix(mime, "video/"):
		return FamilyVideo
	case strings.HasPrefix(mime, "audio/"):
		return FamilyAudio
	case strings.HasPrefix(mime, "text/"), mime == "application/json", mime == "application/xml":
		return FamilyText
	case mime == "application/pdf", mime == "application/rtf",
		strings.Contains(mime, "msword"),
		strings.Contains(mime, "officedocument"),
		strings.Contains(mime, "ms-excel"),
		strings.Contains(mime, "ms-powerpoint"),
		strings.Contains(mime, "opendocument"):
		return FamilyDocument
	case mime == "application/zip", mime == "application/gzip",
		mime == "application/x-tar", mime == "application/x-bzip2",
		mime == "application/x-7z-compressed", mime == "application/vnd.rar",
		mime == "application/x-rar-compressed", mime == "application/x-xz":
		return FamilyArchive
	}
	return FamilyGeneric
}
