package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/caredocs/attesta/internal/models"
)

var testPolicy = Policy{
	DocumentCode:         "QMS",
	EffectiveOffsetDays:  7,
	ReviewIntervalMonths: 24,
	Organization:         "St. Jude District Hospital",
}

func TestComputeSharedFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fields := ComputeSharedFields(testPolicy, "7.1.2", "1.0", now)
	if fields.DocumentNumber != "QMS-7.1.2" {
		t.Errorf("document number = %q", fields.DocumentNumber)
	}
	if got := fields.EffectiveDate.Format("2006-01-02"); got != "2026-03-08" {
		t.Errorf("effective date = %s", got)
	}
	if got := fields.ReviewDate.Format("2006-01-02"); got != "2028-03-08" {
		t.Errorf("review date = %s", got)
	}
}

func TestAssemble_SharedFieldsIdenticalAcrossPages(t *testing.T) {
	specs, err := models.SectionSpecs([]string{"procedure", "corrective_action", "training_record"})
	if err != nil {
		t.Fatal(err)
	}
	sections := []models.GeneratedSection{
		{SectionID: "procedure", HTMLFragment: "<p>one</p>"},
		{SectionID: "corrective_action", HTMLFragment: "<p>two</p>"},
		{SectionID: "training_record", HTMLFragment: "<p>three</p>"},
	}
	fields := ComputeSharedFields(testPolicy, "NC-12", "1.0", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	html, err := Assemble("Evidence", specs, sections, fields)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	// Each page repeats the shared fields verbatim: once per page plus the footer.
	if got := strings.Count(html, "QMS-NC-12"); got != len(specs)*2 {
		t.Errorf("document number appears %d times, want %d", got, len(specs)*2)
	}
	if got := strings.Count(html, fields.EffectiveDate.Format("2006-01-02")); got != len(specs) {
		t.Errorf("effective date appears %d times, want %d", got, len(specs))
	}
}

func TestAssemble_PageOrderFollowsSpecs(t *testing.T) {
	// Sections arrive in reversed (completion) order; pages must follow specs.
	specs, err := models.SectionSpecs([]string{"procedure", "corrective_action"})
	if err != nil {
		t.Fatal(err)
	}
	sections := []models.GeneratedSection{
		{SectionID: "corrective_action", HTMLFragment: "<p>CA</p>"},
		{SectionID: "procedure", HTMLFragment: "<p>SOP</p>"},
	}
	fields := ComputeSharedFields(testPolicy, "7.1.2", "1.0", time.Now())
	html, err := Assemble("Doc", specs, sections, fields)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	first := strings.Index(html, specs[0].PageTitle)
	second := strings.Index(html, specs[1].PageTitle)
	if first < 0 || second < 0 || first > second {
		t.Errorf("page titles out of order: %d vs %d", first, second)
	}
	if sopIdx, caIdx := strings.Index(html, "<p>SOP</p>"), strings.Index(html, "<p>CA</p>"); sopIdx > caIdx {
		t.Error("bodies out of spec order")
	}
}

func TestAssemble_MissingSection(t *testing.T) {
	specs, err := models.SectionSpecs([]string{"procedure", "corrective_action"})
	if err != nil {
		t.Fatal(err)
	}
	sections := []models.GeneratedSection{{SectionID: "procedure", HTMLFragment: "<p>x</p>"}}
	_, err = Assemble("Doc", specs, sections, ComputeSharedFields(testPolicy, "r", "1.0", time.Now()))
	if err == nil {
		t.Fatal("expected error for missing section")
	}
}

func TestRewrap_ProducesStandaloneDocument(t *testing.T) {
	fields := ComputeSharedFields(testPolicy, "7.1.2", "1.1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	html, err := Rewrap("Hand Hygiene SOP", `<div class="page"><p>revised</p></div>`, fields)
	if err != nil {
		t.Fatalf("Rewrap error: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<style>",
		`<div class="page"><p>revised</p></div>`,
		"QMS-7.1.2",
		"Version 1.1",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("wrapped document missing %q", want)
		}
	}
}

func TestRewrap_EmptyBody(t *testing.T) {
	fields := ComputeSharedFields(testPolicy, "7.1.2", "1.1", time.Now())
	if _, err := Rewrap("Doc", "  \n ", fields); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestAssemble_FragmentNotEscaped(t *testing.T) {
	specs, err := models.SectionSpecs([]string{"procedure"})
	if err != nil {
		t.Fatal(err)
	}
	sections := []models.GeneratedSection{{SectionID: "procedure", HTMLFragment: "<ol><li>Step</li></ol>"}}
	html, err := Assemble("Doc", specs, sections, ComputeSharedFields(testPolicy, "r", "1.0", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<ol><li>Step</li></ol>") {
		t.Error("fragment was escaped")
	}
	if !strings.Contains(html, "<style>") || !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("document shell missing")
	}
}
