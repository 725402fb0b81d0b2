package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/caredocs/attesta/internal/models"
)

func TestWriteLibraryResults_Text(t *testing.T) {
	var buf bytes.Buffer
	resp := &LibrarySearchResponse{Results: []LibraryHit{
		{ID: "d1", Path: "/library/sop.txt", Title: "hand hygiene sop", Score: 1.23},
	}}
	if err := WriteLibraryResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 documents", "hand hygiene sop", "/library/sop.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteGenerateResult_JSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := &GenerateResponse{
		Document: models.GeneratedDocument{ID: "doc-1", Title: "SOP", Version: "1.0"},
		FileURL:  "/files/documents/doc-1.html",
	}
	if err := WriteGenerateResult(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded GenerateResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Document.ID != "doc-1" || decoded.FileURL != resp.FileURL {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStatus_Text(t *testing.T) {
	var buf bytes.Buffer
	status := &StatusResponse{Documents: 3, NCs: 1, LegacyDocuments: 7, LibraryIndexSize: 7}
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"documents:", "ncs:", "legacy_documents:", "library_index_size:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
