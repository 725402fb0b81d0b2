package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Office Open XML text nodes. Word body text lives in <w:t> runs, slide text
// in <a:t> runs; both may carry attributes such as xml:space="preserve".
var (
	wordTextRun  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideTextRun = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

const wordDocumentPath = "word/document.xml"

// readDOCX extracts text from .docx bytes. The container is a ZIP whose main
// body is word/document.xml; we pull every <w:t> run so content survives
// regardless of paragraph or run attributes.
func readDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docXML, err := readZipEntry(zr, wordDocumentPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	return joinMatches(wordTextRun.FindAllStringSubmatch(string(docXML), -1)), nil
}

// readSlides extracts text from .pptx bytes by scanning every
// ppt/slides/slideN.xml for <a:t> runs.
func readSlides(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		slideXML, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		text := joinMatches(slideTextRun.FindAllStringSubmatch(string(slideXML), -1))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String()), nil
}

// readZipEntry returns the contents of the named entry, or an error when absent.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("%s not found", name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return buf.Bytes(), nil
}

// joinMatches joins the first capture group of each match with single spaces.
func joinMatches(parts [][]string) string {
	var b strings.Builder
	for _, p := range parts {
		t := strings.TrimSpace(p[1])
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return b.String()
}
