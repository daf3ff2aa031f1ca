package content

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ErrBinaryUnsupported marks a binary format the extractor tolerates but
// cannot convert (legacy .doc/.xls/.ppt and unknown types).
var ErrBinaryUnsupported = errors.New("unsupported binary format")

// ErrMalformedPayload marks a payload that claims a supported format but
// cannot be parsed.
var ErrMalformedPayload = errors.New("malformed binary payload")

// Metadata carries format-specific facts alongside extracted text.
type Metadata struct {
	Pages   int      `json:"pages,omitempty"`   // PDF page count
	Sheets  []string `json:"sheets,omitempty"`  // XLSX sheet names
	Slides  int      `json:"slides,omitempty"`  // PPTX slide count
	Entries int      `json:"entries,omitempty"` // container entry count
}

// BinaryExtractor converts a binary payload into plain text plus metadata.
// The partial flag reports that output was truncated at the extractor's
// text cap.
type BinaryExtractor interface {
	Extract(data []byte, mimeType string) (text string, meta Metadata, partial bool, err error)
}

// Binary is the default BinaryExtractor covering PDF, OOXML (DOCX, XLSX,
// PPTX) and common containers (ZIP, TAR, GZIP).
type Binary struct {
	// MaxTextLen caps extracted text; excess is dropped and flagged partial.
	MaxTextLen int
}

// NewBinary returns a Binary extractor with the given text cap
// (0 means 1 MiB).
func NewBinary(maxTextLen int) *Binary {
	if maxTextLen <= 0 {
		maxTextLen = 1 << 20
	}
	return &Binary{MaxTextLen: maxTextLen}
}

// legacy office formats are tolerated as unsupported.
var legacyMimes = map[string]bool{
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
}

// Extract dispatches on MIME type. Unknown types and legacy office formats
// return ErrBinaryUnsupported.
func (b *Binary) Extract(data []byte, mimeType string) (string, Metadata, bool, error) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	}

	if legacyMimes[mt] {
		return "", Metadata{}, false, ErrBinaryUnsupported
	}

	switch mt {
	case "application/pdf":
		return b.extractPDF(data)
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return b.extractDOCX(data)
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return b.extractXLSX(data)
	case "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return b.extractPPTX(data)
	case "application/zip", "application/x-zip-compressed":
		return b.extractZIP(data)
	case "application/gzip", "application/x-gzip":
		return b.extractGZIP(data)
	case "application/x-tar":
		return b.extractTAR(data)
	}
	return "", Metadata{}, false, ErrBinaryUnsupported
}

func (b *Binary) cap(text string) (string, bool) {
	if len(text) > b.MaxTextLen {
		return text[:b.MaxTextLen], true
	}
	return text, false
}

func (b *Binary) extractPDF(data []byte) (string, Metadata, bool, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: pdf: %v", ErrMalformedPayload, err)
	}

	meta := Metadata{Pages: reader.NumPage()}
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // a bad page does not fail the document
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > b.MaxTextLen {
			break
		}
	}
	text, partial := b.cap(CollapseText(sb.String()))
	return text, meta, partial, nil
}

func (b *Binary) extractXLSX(data []byte) (string, Metadata, bool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: xlsx: %v", ErrMalformedPayload, err)
	}
	defer f.Close()

	meta := Metadata{Sheets: f.GetSheetList()}
	var sb strings.Builder
	for _, sheet := range meta.Sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, " "))
			sb.WriteString("\n")
			if sb.Len() > b.MaxTextLen {
				break
			}
		}
	}
	text, partial := b.cap(CollapseText(sb.String()))
	return text, meta, partial, nil
}

func (b *Binary) extractDOCX(data []byte) (string, Metadata, bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: docx: %v", ErrMalformedPayload, err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", Metadata{}, false, fmt.Errorf("%w: docx: no document part", ErrMalformedPayload)
	}
	text, err := ooxmlText(doc, "p")
	if err != nil {
		return "", Metadata{}, false, err
	}
	out, partial := b.cap(CollapseText(text))
	return out, Metadata{}, partial, nil
}

func (b *Binary) extractPPTX(data []byte) (string, Metadata, bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: pptx: %v", ErrMalformedPayload, err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].Name < slides[j].Name })

	var sb strings.Builder
	for _, slide := range slides {
		text, err := ooxmlText(slide, "p")
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > b.MaxTextLen {
			break
		}
	}
	out, partial := b.cap(CollapseText(sb.String()))
	return out, Metadata{Slides: len(slides)}, partial, nil
}

// ooxmlText streams an OOXML part and collects character data, inserting a
// newline at each closing paragraph element.
func ooxmlText(f *zip.File, paragraphLocal string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: xml: %v", ErrMalformedPayload, err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.EndElement:
			if t.Name.Local == paragraphLocal {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

// textualEntry reports container entries worth reading as text.
func textualEntry(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".csv", ".tsv", ".json", ".xml", ".html", ".htm", ".md", ".log":
		return true
	}
	return false
}

func (b *Binary) extractZIP(data []byte) (string, Metadata, bool, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: zip: %v", ErrMalformedPayload, err)
	}

	var sb strings.Builder
	for _, f := range zr.File {
		if !textualEntry(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		chunk, _ := io.ReadAll(io.LimitReader(rc, int64(b.MaxTextLen)))
		rc.Close()
		sb.Write(chunk)
		sb.WriteString("\n")
		if sb.Len() > b.MaxTextLen {
			break
		}
	}
	text, partial := b.cap(CollapseText(sb.String()))
	return text, Metadata{Entries: len(zr.File)}, partial, nil
}

func (b *Binary) extractGZIP(data []byte) (string, Metadata, bool, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: gzip: %v", ErrMalformedPayload, err)
	}
	defer gr.Close()

	raw, err := io.ReadAll(io.LimitReader(gr, int64(b.MaxTextLen)+1))
	if err != nil {
		return "", Metadata{}, false, fmt.Errorf("%w: gzip: %v", ErrMalformedPayload, err)
	}
	text, partial := b.cap(CollapseText(string(raw)))
	return text, Metadata{Entries: 1}, partial, nil
}

func (b *Binary) extractTAR(data []byte) (string, Metadata, bool, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var sb strings.Builder
	entries := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", Metadata{}, false, fmt.Errorf("%w: tar: %v", ErrMalformedPayload, err)
		}
		entries++
		if hdr.Typeflag != tar.TypeReg || !textualEntry(hdr.Name) {
			continue
		}
		chunk, _ := io.ReadAll(io.LimitReader(tr, int64(b.MaxTextLen)))
		sb.Write(chunk)
		sb.WriteString("\n")
		if sb.Len() > b.MaxTextLen {
			break
		}
	}
	text, partial := b.cap(CollapseText(sb.String()))
	return text, Metadata{Entries: entries}, partial, nil
}

// IsBinaryExtractable reports whether a MIME type routes to the binary
// extractor (supported or tolerated-legacy).
func IsBinaryExtractable(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	if legacyMimes[mt] {
		return true
	}
	switch mt {
	case "application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/zip", "application/x-zip-compressed",
		"application/gzip", "application/x-gzip",
		"application/x-tar":
		return true
	}
	return false
}
