package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"terabox-extractor/pkg/models"
)

func sampleResults() []*models.VideoResult {
	return []*models.VideoResult{
		{
			Success:     true,
			Title:       "movie.mp4",
			Size:        1536,
			SizeStr:     "1.50 KB",
			StreamURL:   "https://d/movie",
			DownloadURL: "https://d/movie",
			FsID:        "2",
			ShareID:     "42",
			UK:          "7",
			Surl:        "abc",
		},
		models.FailedResult("xyz", models.MsgAllStrategiesFailed),
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "out.csv")
	exporter := NewDataExporter(ExportConfig{Format: FormatCSV, FilePath: path})

	if err := exporter.ExportResults(sampleResults()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Expected file, got %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Expected valid CSV, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "surl,success,title,size,stream_url,download_url,fs_id,share_id,uk,error" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[1][0] != "abc" || rows[1][1] != "true" || rows[1][3] != "1536" || rows[1][4] != "https://d/movie" {
		t.Errorf("Unexpected success row %v", rows[1])
	}
	if rows[2][1] != "false" || rows[2][9] != models.MsgAllStrategiesFailed || rows[2][3] != "" {
		t.Errorf("Unexpected failure row %v", rows[2])
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	exporter := NewDataExporter(ExportConfig{Format: FormatXLSX, FilePath: path})

	if err := exporter.ExportResults(sampleResults()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("Expected readable workbook, got %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("Expected Results sheet, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[1][2] != "movie.mp4" {
		t.Errorf("Expected title in row 2, got %v", rows[1])
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	exporter := NewDataExporter(ExportConfig{Format: FormatJSON, FilePath: path})

	if err := exporter.ExportResults(sampleResults()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected file, got %v", err)
	}

	var report struct {
		Count     int                   `json:"count"`
		Succeeded int                   `json:"succeeded"`
		Results   []*models.VideoResult `json:"results"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if report.Count != 2 || report.Succeeded != 1 || report.Results[1].Surl != "xyz" {
		t.Errorf("Unexpected report %+v", report)
	}
}

func TestExportTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	exporter := NewDataExporter(ExportConfig{Format: FormatTXT, FilePath: path})

	if err := exporter.ExportResults(sampleResults()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	for _, expected := range []string{"Total Links: 2 (resolved: 1)", "Stream: https://d/movie", "Error: " + models.MsgAllStrategiesFailed} {
		if !strings.Contains(text, expected) {
			t.Errorf("Expected %q in report:\n%s", expected, text)
		}
	}
}

func TestExportCustomColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	exporter := NewDataExporter(ExportConfig{
		Format:    FormatCSV,
		FilePath:  path,
		Columns:   []string{"Share", "Size Str", "unknown"},
		Delimiter: ';',
	})

	if err := exporter.ExportResults(sampleResults()[:1]); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[1] != "abc;1.50 KB;" {
		t.Errorf("Unexpected row %q", lines[1])
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(ExportConfig{Format: FormatCSV}); err == nil {
		t.Error("Expected error for missing path")
	}
	if err := ValidateConfig(ExportConfig{Format: "pdf", FilePath: "x.pdf"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if err := NewDataExporter(ExportConfig{Format: "pdf", FilePath: "x.pdf"}).ExportResults(nil); err == nil {
		t.Error("Expected export to reject unsupported format")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected ExportFormat
		wantErr  bool
	}{
		{"report.csv", FormatCSV, false},
		{"dir/Report.XLSX", FormatXLSX, false},
		{"r.json", FormatJSON, false},
		{"r.txt", FormatTXT, false},
		{"r.pdf", "", true},
		{"noext", "", true},
	}

	for _, test := range tests {
		got, err := FormatFromPath(test.path)
		if (err != nil) != test.wantErr || got != test.expected {
			t.Errorf("FormatFromPath(%s): expected %s (err=%v), got %s (%v)", test.path, test.expected, test.wantErr, got, err)
		}
	}
}
