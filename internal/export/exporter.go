package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"terabox-extractor/pkg/models"
)

// ExportFormat represents different export formats
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
	FormatTXT  ExportFormat = "txt"
)

// ExportConfig holds configuration for data export
type ExportConfig struct {
	Format        ExportFormat
	FilePath      string
	Columns       []string
	DateFormat    string
	Delimiter     rune
	IncludeHeader bool
}

// DataExporter writes resolution reports
type DataExporter struct {
	config ExportConfig
}

// NewDataExporter creates a new data exporter
func NewDataExporter(config ExportConfig) *DataExporter {
	// Set defaults
	if config.DateFormat == "" {
		config.DateFormat = "2006-01-02 15:04:05"
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if len(config.Columns) == 0 {
		config.Columns = getDefaultColumns()
	}
	config.IncludeHeader = true

	return &DataExporter{
		config: config,
	}
}

// ExportResults writes results in the configured format
func (de *DataExporter) ExportResults(results []*models.VideoResult) error {
	if err := ValidateConfig(de.config); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(de.config.FilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	switch de.config.Format {
	case FormatCSV:
		return de.exportToCSV(results)
	case FormatXLSX:
		return de.exportToXLSX(results)
	case FormatJSON:
		return de.exportToJSON(results)
	case FormatTXT:
		return de.exportToTXT(results)
	default:
		return fmt.Errorf("unsupported export format: %s", de.config.Format)
	}
}

// exportToCSV exports data to CSV format
func (de *DataExporter) exportToCSV(results []*models.VideoResult) error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = de.config.Delimiter

	if de.config.IncludeHeader {
		if err := writer.Write(de.config.Columns); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, result := range results {
		if err := writer.Write(de.resultToRow(result)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// exportToXLSX exports data to Excel format
func (de *DataExporter) exportToXLSX(results []*models.VideoResult) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	failedStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
	})
	if err != nil {
		return fmt.Errorf("failed to create row style: %w", err)
	}

	for i, column := range de.config.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, column)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, columnWidth(column))
	}

	lastCol := len(de.config.Columns)
	for i, result := range results {
		for j, value := range de.resultToRow(result) {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheetName, cell, value)
		}
		if !result.Playable() {
			first, _ := excelize.CoordinatesToCellName(1, i+2)
			last, _ := excelize.CoordinatesToCellName(lastCol, i+2)
			f.SetCellStyle(sheetName, first, last, failedStyle)
		}
	}

	endCell, _ := excelize.CoordinatesToCellName(lastCol, len(results)+1)
	if err := f.AutoFilter(sheetName, "A1:"+endCell, []excelize.AutoFilterOptions{}); err != nil {
		return fmt.Errorf("failed to set auto filter: %w", err)
	}

	// Freeze first row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if err := f.SaveAs(de.config.FilePath); err != nil {
		return fmt.Errorf("failed to save XLSX file: %w", err)
	}

	return nil
}

// exportToJSON exports data to JSON format
func (de *DataExporter) exportToJSON(results []*models.VideoResult) error {
	exportData := struct {
		ExportedAt time.Time             `json:"exported_at"`
		Count      int                   `json:"count"`
		Succeeded  int                   `json:"succeeded"`
		Results    []*models.VideoResult `json:"results"`
	}{
		ExportedAt: time.Now(),
		Count:      len(results),
		Succeeded:  countPlayable(results),
		Results:    results,
	}

	data, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(de.config.FilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// exportToTXT exports data to plain text format
func (de *DataExporter) exportToTXT(results []*models.VideoResult) error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create TXT file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "TeraBox Resolution Report\n")
	fmt.Fprintf(file, "Generated: %s\n", time.Now().Format(de.config.DateFormat))
	fmt.Fprintf(file, "Total Links: %d (resolved: %d)\n", len(results), countPlayable(results))
	fmt.Fprintf(file, "%s\n\n", strings.Repeat("=", 50))

	for i, result := range results {
		fmt.Fprintf(file, "Link %d:\n", i+1)
		fmt.Fprintf(file, "  Share ID: %s\n", result.Surl)
		if !result.Playable() {
			fmt.Fprintf(file, "  Error: %s\n\n", result.Error)
			continue
		}
		fmt.Fprintf(file, "  Title: %s\n", result.Title)
		fmt.Fprintf(file, "  Size: %s\n", result.SizeStr)
		fmt.Fprintf(file, "  Stream: %s\n", result.StreamURL)
		fmt.Fprintf(file, "\n")
	}

	return nil
}

// resultToRow converts a VideoResult to a row of strings
func (de *DataExporter) resultToRow(result *models.VideoResult) []string {
	row := make([]string, len(de.config.Columns))

	for i, column := range de.config.Columns {
		switch strings.ToLower(strings.ReplaceAll(column, " ", "_")) {
		case "surl", "share":
			row[i] = result.Surl
		case "success":
			row[i] = strconv.FormatBool(result.Playable())
		case "title":
			row[i] = result.Title
		case "filename":
			row[i] = result.Filename
		case "size":
			if result.Size > 0 {
				row[i] = strconv.FormatInt(result.Size, 10)
			}
		case "size_str":
			row[i] = result.SizeStr
		case "stream_url":
			row[i] = result.StreamURL
		case "download_url":
			row[i] = result.DownloadURL
		case "thumbnail":
			row[i] = result.Thumbnail
		case "fs_id":
			row[i] = result.FsID
		case "share_id":
			row[i] = result.ShareID
		case "uk":
			row[i] = result.UK
		case "error":
			row[i] = result.Error
		}
	}

	return row
}

// getDefaultColumns returns default column names
func getDefaultColumns() []string {
	return []string{
		"surl",
		"success",
		"title",
		"size",
		"stream_url",
		"download_url",
		"fs_id",
		"share_id",
		"uk",
		"error",
	}
}

func columnWidth(column string) float64 {
	switch strings.ToLower(column) {
	case "stream_url", "download_url", "thumbnail":
		return 60
	case "title", "filename", "error":
		return 40
	case "success", "size", "size_str":
		return 12
	default:
		return 20
	}
}

func countPlayable(results []*models.VideoResult) int {
	n := 0
	for _, result := range results {
		if result.Playable() {
			n++
		}
	}
	return n
}

// GetSupportedFormats returns list of supported export formats
func GetSupportedFormats() []ExportFormat {
	return []ExportFormat{FormatCSV, FormatXLSX, FormatJSON, FormatTXT}
}

// FormatFromPath infers the export format from a file extension
func FormatFromPath(path string) (ExportFormat, error) {
	ext := ExportFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	for _, format := range GetSupportedFormats() {
		if ext == format {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %q", ext)
}

// ValidateConfig validates export configuration
func ValidateConfig(config ExportConfig) error {
	if config.FilePath == "" {
		return fmt.Errorf("file path is required")
	}

	for _, format := range GetSupportedFormats() {
		if config.Format == format {
			return nil
		}
	}

	return fmt.Errorf("unsupported format: %s", config.Format)
}
