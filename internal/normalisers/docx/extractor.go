// Package docx extracts Word documents, splitting pages on explicit page breaks.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{"docx"}
}

// Extract reads word/document.xml. Rendered page numbers are not stored in
// the file, so only explicit page breaks start a new page.
func (e *Extractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, domain.NewExtractionError(path, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.NewExtractionError(path, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.NewExtractionError(path, err)
		}

		pages, err := parseDocumentXML(content)
		if err != nil {
			return nil, domain.NewExtractionError(path, err)
		}
		return pages, nil
	}

	return nil, domain.NewExtractionError(path, fmt.Errorf("word/document.xml: %w", domain.ErrNotFound))
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Breaks []breakElement `xml:"br"`
	Text   []textElement  `xml:"t"`
}

type breakElement struct {
	Type string `xml:"type,attr"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func (r run) hasPageBreak() bool {
	for _, br := range r.Breaks {
		if br.Type == "page" {
			return true
		}
	}
	return false
}

// parseDocumentXML returns paragraphs joined by newlines, grouped into pages.
func parseDocumentXML(content []byte) ([]domain.Page, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse document.xml: %w", err)
	}

	var pages []domain.Page
	var current strings.Builder
	flush := func() {
		pages = append(pages, domain.Page{
			Number: len(pages) + 1,
			Text:   strings.TrimSpace(current.String()),
		})
		current.Reset()
	}

	for _, para := range doc.Body.Paragraphs {
		for _, r := range para.Runs {
			if r.hasPageBreak() {
				flush()
			}
			for _, text := range r.Text {
				current.WriteString(text.Content)
			}
		}
		current.WriteString("\n")
	}
	flush()

	return pages, nil
}
