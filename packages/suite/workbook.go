package suite

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/smokecheck/packages/assertions"
	smokehttp "github.com/abdul-hamid-achik/smokecheck/packages/http"
	"github.com/xuri/excelize/v2"
)

// Workbook columns, matched case-insensitively against the header row.
const (
	colName   = "name"
	colTarget = "target"
	colMethod = "method"
	colPath   = "path"
	colQuery  = "query"
	colBody   = "body"
	colStatus = "status"
	colSchema = "schema"
	colEquals = "equals"
	colTags   = "tags"
)

var requiredColumns = []string{colName, colTarget, colMethod, colPath, colStatus}

// LoadWorkbook reads one case per row from an Excel sheet. The first row is
// the header; an empty sheet name selects the first sheet. Rows with an
// empty name are skipped.
//
// Cell formats: query "delay=3&page=2", body as JSON, equals
// "job=Resident;id=4" (values parsed as JSON when possible), tags
// comma-separated.
func LoadWorkbook(path, sheet string) ([]*Case, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: sheet %q has no case rows", path, sheet)
	}

	columns := make(map[string]int)
	for i, h := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%s: sheet %q is missing column %q", path, sheet, col)
		}
	}

	var cases []*Case
	seen := make(map[string]bool)
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(col string) string {
			idx, ok := columns[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if cell(colName) == "" {
			continue
		}

		c, err := caseFromRow(cell)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, rowNum, err)
		}
		c.Source = path
		c.normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, rowNum, err)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%s row %d: duplicate case name %q", path, rowNum, c.Name)
		}
		seen[c.Name] = true
		cases = append(cases, c)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("%s: sheet %q has no case rows", path, sheet)
	}
	return cases, nil
}

func caseFromRow(cell func(string) string) (*Case, error) {
	c := &Case{
		Name:   cell(colName),
		Target: cell(colTarget),
		Method: cell(colMethod),
		Path:   cell(colPath),
		Schema: cell(colSchema),
	}

	status, err := strconv.Atoi(cell(colStatus))
	if err != nil {
		return nil, fmt.Errorf("invalid status %q", cell(colStatus))
	}
	c.Status = status

	if q := cell(colQuery); q != "" {
		c.Query = smokehttp.ParseQuery(q)
	}

	if raw := cell(colBody); raw != "" {
		var body any
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return nil, fmt.Errorf("body is not valid JSON: %w", err)
		}
		c.Body = body
	}

	if raw := cell(colEquals); raw != "" {
		for _, pair := range strings.Split(raw, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			path, value, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(path) == "" {
				return nil, fmt.Errorf("invalid equals entry %q, want path=value", pair)
			}
			c.Expect = append(c.Expect, assertions.Equals(strings.TrimSpace(path), cellValue(value)))
		}
	}

	if raw := cell(colTags); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				c.Tags = append(c.Tags, tag)
			}
		}
	}

	return c, nil
}

// cellValue decodes a JSON scalar when it can and falls back to the raw text.
func cellValue(raw string) any {
	raw = strings.TrimSpace(raw)
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
