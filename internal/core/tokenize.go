package core

// tokenize.go splits pasted or uploaded spreadsheet text into header-keyed rows.
//
// The format is deliberately simple: one record per line, tab-delimited when
// the header line contains a tab and comma-delimited otherwise. Quoted fields
// are NOT parsed as RFC 4180; a delimiter inside quotes splits the field.
// Existing exports never contain such values, and the lenient split keeps
// tab-separated clipboard pastes working.

import (
	"strings"
	"unicode/utf8"
)

// Row maps a header name to the cell value in that column.
type Row map[string]string

const utf8BOM = "\ufeff"

// Tokenize parses raw text into rows keyed by the header line.
// Blank lines are skipped. Fewer than two non-blank lines yields no rows.
func Tokenize(text string) []Row {
	text = sanitizeText(text)

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) < 2 {
		return nil
	}

	delim := DetectDelimiter(lines[0])
	headers := splitLine(lines[0], delim)

	rows := make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := splitLine(line, delim)
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// DetectDelimiter returns tab when the header line contains one, else comma.
func DetectDelimiter(headerLine string) string {
	if strings.Contains(headerLine, "\t") {
		return "\t"
	}
	return ","
}

func splitLine(line, delim string) []string {
	parts := strings.Split(line, delim)
	for i, p := range parts {
		parts[i] = cleanCell(p)
	}
	return parts
}

// cleanCell trims whitespace and one layer of surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// sanitizeText drops a leading BOM and replaces invalid UTF-8.
func sanitizeText(text string) string {
	text = strings.TrimPrefix(text, utf8BOM)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	return text
}
