// Package document defines the unit of indexable campus content.
package document

import "fmt"

// SourceType identifies where a document came from.
type SourceType string

const (
	SourceEvent    SourceType = "event"
	SourceCalendar SourceType = "calendar"
	SourceClass    SourceType = "class"
)

// Valid reports whether the source type is one of the known values.
func (s SourceType) Valid() bool {
	switch s {
	case SourceEvent, SourceCalendar, SourceClass:
		return true
	}
	return false
}

// Document is the unit of indexable content. Once handed to the index it is
// treated as immutable; re-ingesting a DocID replaces the document wholesale.
type Document struct {
	DocID      string
	SourceType SourceType
	Title      string
	Text       string
	URL        string
	Metadata   map[string]string
}

// New validates and creates a Document.
func New(docID string, sourceType SourceType, title, text string) (Document, error) {
	if docID == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if !sourceType.Valid() {
		return Document{}, fmt.Errorf("unknown source type %q", sourceType)
	}
	if text == "" {
		return Document{}, fmt.Errorf("document text is required")
	}
	return Document{
		DocID:      docID,
		SourceType: sourceType,
		Title:      title,
		Text:       text,
		Metadata:   map[string]string{},
	}, nil
}
