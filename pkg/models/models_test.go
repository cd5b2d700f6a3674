package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestFileRecordDecoding(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FileRecord
	}{
		{
			name:  "server filename with numeric fields",
			input: `{"server_filename":"movie.mp4","size":1536,"fs_id":123456789012345,"category":1,"thumbs":{"url3":"https://thumb/3"},"dlink":"https://d/1"}`,
			expected: FileRecord{
				Filename:  "movie.mp4",
				Size:      1536,
				FsID:      "123456789012345",
				Category:  1,
				Thumbnail: "https://thumb/3",
				DLink:     "https://d/1",
			},
		},
		{
			name:  "filename fallback with string numbers",
			input: `{"filename":"clip.mkv","size":"2048","fs_id":"77","category":"1","mime_type":"video/x-matroska"}`,
			expected: FileRecord{
				Filename: "clip.mkv",
				Size:     2048,
				FsID:     "77",
				Category: 1,
				MimeType: "video/x-matroska",
			},
		},
		{
			name:     "nulls and garbage numbers",
			input:    `{"server_filename":"a.bin","size":null,"fs_id":null,"category":"n/a"}`,
			expected: FileRecord{Filename: "a.bin"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var record FileRecord
			if err := json.Unmarshal([]byte(test.input), &record); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if record != test.expected {
				t.Errorf("Expected %+v, got %+v", test.expected, record)
			}
		})
	}
}

func TestFileRecordListDecoding(t *testing.T) {
	var payload struct {
		List []FileRecord `json:"list"`
	}
	input := `{"list":[{"server_filename":"a.jpg"},{"server_filename":"b.mp4","size":10}]}`
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(payload.List) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(payload.List))
	}
	if payload.List[1].Filename != "b.mp4" || payload.List[1].Size != 10 {
		t.Errorf("Unexpected second record: %+v", payload.List[1])
	}
}

func TestFileRecordThumbsShapes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"server_filename":"notes.txt","thumbs":[]}`, ""},
		{`{"server_filename":"notes.txt","thumbs":null}`, ""},
		{`{"server_filename":"notes.txt","thumbs":"none"}`, ""},
		{`{"server_filename":"v.mp4","thumbs":{"url1":"a","url3":"c"}}`, "c"},
	}

	for _, test := range tests {
		var record FileRecord
		if err := json.Unmarshal([]byte(test.input), &record); err != nil {
			t.Errorf("%s: expected no error, got %v", test.input, err)
			continue
		}
		if record.Thumbnail != test.expected {
			t.Errorf("%s: expected thumbnail %q, got %q", test.input, test.expected, record.Thumbnail)
		}
	}
}

func TestDecodeFileRecordsSkipsMalformedEntries(t *testing.T) {
	var payload struct {
		List []json.RawMessage `json:"list"`
	}
	input := `{"list":[
		{"server_filename":["not","a","name"],"size":1},
		{"server_filename":"notes.txt","thumbs":[]},
		{"server_filename":"movie.mp4","size":10,"dlink":"https://d/m"}
	]}`
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	files, skipped := DecodeFileRecords(payload.List)
	if skipped != 1 {
		t.Errorf("Expected 1 skipped entry, got %d", skipped)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(files))
	}
	if files[0].Filename != "notes.txt" || files[1].DLink != "https://d/m" {
		t.Errorf("Unexpected records: %+v", files)
	}

	if files, skipped := DecodeFileRecords(nil); len(files) != 0 || skipped != 0 {
		t.Errorf("Expected empty result for nil input, got %v, %d", files, skipped)
	}
}

func TestVideoResultPlayable(t *testing.T) {
	tests := []struct {
		result   *VideoResult
		expected bool
	}{
		{nil, false},
		{&VideoResult{}, false},
		{&VideoResult{Success: true}, false},
		{&VideoResult{StreamURL: "https://s"}, false},
		{&VideoResult{Success: true, StreamURL: "https://s"}, true},
	}

	for i, test := range tests {
		if got := test.result.Playable(); got != test.expected {
			t.Errorf("case %d: expected %v, got %v", i, test.expected, got)
		}
	}
}

func TestStrategyErrorMatchesFailure(t *testing.T) {
	cause := errors.New("empty file list")
	err := fmt.Errorf("wrapped: %w", NewStrategyError("sharelist", cause))

	if !errors.Is(err, ErrStrategyFailure) {
		t.Error("Expected strategy error to match ErrStrategyFailure")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected strategy error to unwrap to its cause")
	}

	var se *StrategyError
	if !errors.As(err, &se) || se.Strategy != "sharelist" {
		t.Errorf("Expected StrategyError for sharelist, got %v", se)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{ErrInvalidURL, MsgInvalidURL},
		{fmt.Errorf("host example.com: %w", ErrInvalidURL), MsgInvalidURL},
		{ErrNoShareToken, MsgNoShareToken},
		{ErrAllStrategiesFailed, MsgAllStrategiesFailed},
	}

	for _, test := range tests {
		if got := UserMessage(test.err); got != test.expected {
			t.Errorf("UserMessage(%v): expected %q, got %q", test.err, test.expected, got)
		}
	}
}

func TestSessionTokensHasShareID(t *testing.T) {
	var nilTokens *SessionTokens
	if nilTokens.HasShareID() {
		t.Error("Expected nil tokens to report no share id")
	}
	if (&SessionTokens{UK: "1"}).HasShareID() {
		t.Error("Expected tokens without share id to report false")
	}
	if !(&SessionTokens{ShareID: "42"}).HasShareID() {
		t.Error("Expected tokens with share id to report true")
	}
}
