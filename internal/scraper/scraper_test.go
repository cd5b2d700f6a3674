package scraper

import (
	"testing"
)

const sharePage = `<!DOCTYPE html>
<html>
<head>
<title>TeraBox - Share</title>
<meta property="og:title" content="holiday.mp4">
</head>
<body>
<script>
window.locals = {"shareid":12345,"uk":67890,"sign":"abcDEF123","timestamp":1700000000,
"jsToken":"JS-TOKEN","bdstoken":"bds42",
"list":[{"server_filename":"holiday.mp4","size":1048576,"fs_id":555,"category":1}],"other":1};
</script>
</body>
</html>`

func TestParseJSONStyle(t *testing.T) {
	tokens := Parse(sharePage)

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"shareid", tokens.ShareID, "12345"},
		{"uk", tokens.UK, "67890"},
		{"sign", tokens.Sign, "abcDEF123"},
		{"timestamp", tokens.Timestamp, "1700000000"},
		{"jsToken", tokens.JSToken, "JS-TOKEN"},
		{"bdstoken", tokens.BDSToken, "bds42"},
	}

	for _, test := range tests {
		if test.got != test.expected {
			t.Errorf("Expected %s %q, got %q", test.name, test.expected, test.got)
		}
	}

	if len(tokens.FileList) != 1 {
		t.Fatalf("Expected 1 inline file, got %d", len(tokens.FileList))
	}
	file := tokens.FileList[0]
	if file.Filename != "holiday.mp4" || file.FsID != "555" || file.Size != 1048576 {
		t.Errorf("Unexpected inline file %+v", file)
	}
}

func TestParseLooseStyle(t *testing.T) {
	page := `<script>
var shareid = 999;
var uk = 111;
var sign = 'loose-sign';
var timestamp = 1600000000;
var jsToken = 'loose-js';
</script>`

	tokens := Parse(page)

	if tokens.ShareID != "999" || tokens.UK != "111" {
		t.Errorf("Unexpected ids: shareid=%q uk=%q", tokens.ShareID, tokens.UK)
	}
	if tokens.Sign != "loose-sign" {
		t.Errorf("Expected loose sign, got %q", tokens.Sign)
	}
	if tokens.Timestamp != "1600000000" {
		t.Errorf("Expected loose timestamp, got %q", tokens.Timestamp)
	}
	if tokens.JSToken != "loose-js" {
		t.Errorf("Expected loose jsToken, got %q", tokens.JSToken)
	}
	if tokens.BDSToken != "" {
		t.Errorf("Expected empty bdstoken, got %q", tokens.BDSToken)
	}
}

func TestParseJSONStyleWins(t *testing.T) {
	page := `shareid = 1; {"shareid": 2}`

	if got := Parse(page).ShareID; got != "2" {
		t.Errorf("Expected JSON-style shareid to win, got %q", got)
	}
}

func TestParseNeverFails(t *testing.T) {
	for _, page := range []string{"", "<html></html>", `{"list": [not json], "x":1}`} {
		tokens := Parse(page)
		if tokens == nil {
			t.Fatalf("Expected tokens for %q, got nil", page)
		}
		if tokens.HasShareID() {
			t.Errorf("Expected no share id for %q", page)
		}
		if len(tokens.FileList) != 0 {
			t.Errorf("Expected no files for %q, got %d", page, len(tokens.FileList))
		}
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		html     string
		expected string
	}{
		{sharePage, "holiday.mp4"},
		{"<html><head><title> Plain </title></head></html>", "Plain"},
		{"", ""},
	}

	for _, test := range tests {
		if got := PageTitle(test.html); got != test.expected {
			t.Errorf("Expected title %q, got %q", test.expected, got)
		}
	}
}
