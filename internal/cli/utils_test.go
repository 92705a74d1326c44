package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/vibematch/internal/eval"
	"github.com/hyperjump/vibematch/internal/models"
)

func sampleResponse() *models.MatchResponse {
	return &models.MatchResponse{
		Query:     "energetic urban chic",
		QueryTime: 12,
		Source:    models.SourceLocal,
		TopScore:  0.82,
		Good:      true,
		Results: []*models.MatchResult{
			{Rank: 1, ProductID: 2, ProductName: "Urban Bomber Jacket", Score: 0.82, Tags: []string{"urban", "chic"}},
			{Rank: 2, ProductID: 4, ProductName: "Tailored Blazer", Score: 0.61},
		},
	}
}

func TestWriteMatchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteMatchResults(json): %v", err)
	}
	var decoded models.MatchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "energetic urban chic" || len(decoded.Results) != 2 || decoded.Results[0].ProductID != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.Good || decoded.Source != models.SourceLocal {
		t.Errorf("good=%v source=%s", decoded.Good, decoded.Source)
	}
}

func TestWriteMatchResults_Text(t *testing.T) {
	resp := sampleResponse()
	resp.Warnings = []string{"vector store query failed: boom"}
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`Top 2 matches for "energetic urban chic"`,
		"warning: vector store query failed: boom",
		"Urban Bomber Jacket",
		"score=0.820",
		"[urban, chic]",
		"Good match? yes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMatchResults_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteMatchResults(&buf, &models.MatchResponse{Query: "q", Source: models.SourceLocal}, OutputText)
	if !strings.Contains(buf.String(), "No products in catalog.") {
		t.Errorf("got %s", buf.String())
	}
}

func TestWriteMatchResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "1\t0.8200\t2\tUrban Bomber Jacket" {
		t.Errorf("line = %q", lines[0])
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchOutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"compact", OutputCompact, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteEvalSummary(t *testing.T) {
	report := &eval.Report{
		RunID: "abc", TopK: 3, Threshold: 0.7, Products: 10,
		Queries: []*eval.QueryReport{{
			Query: "cozy", TopScore: 0.75, Good: true, AvgLatency: time.Millisecond,
			Samples: []time.Duration{time.Millisecond},
			Results: []*models.MatchResult{{Rank: 1, ProductName: "Hoodie", Score: 0.75}},
		}},
	}
	var buf bytes.Buffer
	WriteEvalSummary(&buf, report)
	out := buf.String()
	for _, want := range []string{"Evaluation abc", "--- Query: cozy", "Hoodie (score=0.750)", "Avg=0.001000s", "1/1 queries above threshold"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.0 KiB",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for in, want := range tests {
		if got := HumanBytes(in); got != want {
			t.Errorf("HumanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
