package recovery

import (
	"errors"
	"strings"
	"testing"
)

type record struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func TestParseArray_ValidJSON(t *testing.T) {
	raw := `[{"id":1,"title":"first"},{"id":2,"title":"second"}]`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed on valid JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != 1 || records[0].Title != "first" {
		t.Errorf("First record mismatch: %+v", records[0])
	}
	if records[1].ID != 2 || records[1].Title != "second" {
		t.Errorf("Second record mismatch: %+v", records[1])
	}
}

func TestParseArray_MarkdownFence(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{
			name: "tagged fence",
			raw:  "```json\n[{\"id\":1,\"title\":\"a\"}]\n```",
		},
		{
			name: "untagged fence",
			raw:  "```\n[{\"id\":1,\"title\":\"a\"}]\n```",
		},
		{
			name: "fence with surrounding whitespace",
			raw:  "  ```json\n[{\"id\":1,\"title\":\"a\"}]\n```  ",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := ParseArray[record](tc.raw)
			if err != nil {
				t.Fatalf("ParseArray failed: %v", err)
			}
			if len(records) != 1 || records[0].Title != "a" {
				t.Errorf("Unexpected result: %+v", records)
			}
		})
	}
}

func TestParseArray_TrailingProse(t *testing.T) {
	raw := `[{"id":1,"title":"a"}]

I hope these groupings are helpful! Let me know if you need anything else.`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed with trailing prose: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}
}

func TestParseArray_TruncatedLastElement(t *testing.T) {
	// Simulates mid-token truncation: the closing brace of the last
	// element and the closing bracket are both missing.
	raw := `[{"id":1,"title":"kept"},{"id":2,"title":"also kept"},{"id":3,"title":"cut off mid`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray should tolerate truncation, got: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected the 2 complete records, got %d", len(records))
	}
	if records[1].Title != "also kept" {
		t.Errorf("Second record mismatch: %+v", records[1])
	}
}

func TestParseArray_TruncatedAfterComma(t *testing.T) {
	raw := `[{"id":1,"title":"a"},`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != 1 {
		t.Errorf("Expected single record with id 1, got %+v", records)
	}
}

func TestParseArray_BracketsInsideStrings(t *testing.T) {
	// Literal braces and brackets inside quoted fields must not perturb
	// depth tracking.
	raw := `[{"id":1,"title":"uses {curly} and [square] chars"},{"id":2,"title":"escaped \" quote }"}]`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed on strings containing brackets: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if !strings.Contains(records[0].Title, "{curly}") {
		t.Errorf("Brackets inside string were mangled: %q", records[0].Title)
	}
}

func TestParseArray_BracketsInsideStringsWithTruncation(t *testing.T) {
	raw := `[{"id":1,"title":"has ] and } inside"},{"id":2,"title":"truncated [`

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 surviving record, got %d", len(records))
	}
	if records[0].Title != "has ] and } inside" {
		t.Errorf("Surviving record mismatch: %+v", records[0])
	}
}

func TestParseArray_Unrepairable(t *testing.T) {
	raw := `the model refused and wrote prose with an unbalanced { brace`

	_, err := ParseArray[record](raw)
	if err == nil {
		t.Fatal("Expected MalformedResponseError for unrepairable input")
	}

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected *MalformedResponseError, got %T", err)
	}
	if malformed.Repaired == "" {
		t.Error("Diagnostic should include the repaired text")
	}
	if !strings.Contains(err.Error(), "malformed model response") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestParseArray_ObjectNotArray(t *testing.T) {
	// A bare object is valid JSON but not the array shape the pipeline
	// expects.
	raw := `{"id":1,"title":"a"}`

	_, err := ParseArray[record](raw)
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected *MalformedResponseError for non-array JSON, got %v", err)
	}
}

func TestParseArray_EmptyArray(t *testing.T) {
	records, err := ParseArray[record]("[]")
	if err != nil {
		t.Fatalf("ParseArray failed on empty array: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestParseArray_FencedAndTruncated(t *testing.T) {
	// Both defenses at once: fenced output that was also cut off.
	raw := "```json\n[{\"id\":1,\"title\":\"ok\"},{\"id\":2,\"titl"

	records, err := ParseArray[record](raw)
	if err != nil {
		t.Fatalf("ParseArray failed: %v", err)
	}
	if len(records) != 1 || records[0].Title != "ok" {
		t.Errorf("Expected the single complete record, got %+v", records)
	}
}
