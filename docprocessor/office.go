// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// office.go extracts Word and Excel documents. A .docx is a zip archive
// whose word/document.xml carries all body text, so extraction is a
// streaming XML walk; spreadsheets go through excelize.
package docprocessor

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractDOCX pulls paragraph and table text out of a .docx file.
// Body paragraphs come first, then table rows with cells joined by " | ",
// all separated by blank lines.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX %q: %w", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read DOCX body %q: %w", path, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}

	return "", fmt.Errorf("invalid DOCX %q: missing word/document.xml", path)
}

// parseDocumentXML walks the WordprocessingML token stream. Paragraph text
// lives in w:t elements; w:tbl nesting is tracked so table cell content is
// collected into rows instead of body paragraphs.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var (
		bodyParas  []string
		tableRows  []string
		para       strings.Builder
		cellParas  []string
		rowCells   []string
		tableDepth int
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse DOCX body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				para.Reset()
			case "tbl":
				tableDepth++
			case "tr":
				rowCells = rowCells[:0]
			case "tc":
				cellParas = cellParas[:0]
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					break
				}
				if tableDepth > 0 {
					cellParas = append(cellParas, text)
				} else {
					bodyParas = append(bodyParas, text)
				}
			case "tc":
				if cell := strings.TrimSpace(strings.Join(cellParas, "\n")); cell != "" {
					rowCells = append(rowCells, cell)
				}
			case "tr":
				if tableDepth > 0 && len(rowCells) > 0 {
					tableRows = append(tableRows, strings.Join(rowCells, " | "))
				}
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			}
		}
	}

	blocks := make([]string, 0, len(bodyParas)+len(tableRows))
	blocks = append(blocks, bodyParas...)
	blocks = append(blocks, tableRows...)
	return strings.Join(blocks, "\n\n"), nil
}

// extractXLSX reads every sheet of a spreadsheet, one "[Sheet: name]"
// block per sheet with cells joined by " | ". Empty rows are skipped.
// Legacy .xls files are routed here too and fail with excelize's format
// error, which is surfaced as-is.
func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet %q: %w", path, err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
		}

		var lines []string
		for _, row := range rows {
			line := strings.Join(row, " | ")
			if strings.Trim(line, " |") != "" {
				lines = append(lines, line)
			}
		}

		if len(lines) > 0 {
			sheets = append(sheets, fmt.Sprintf("[Sheet: %s]\n%s", sheetName, strings.Join(lines, "\n")))
		}
	}

	return strings.Join(sheets, "\n\n"), nil
}
