package domain

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/allisson/missionhub/internal/errors"
)

// CSVRow is one task row read from checklist CSV.
type CSVRow struct {
	Line               int
	DueRelativeMinutes *int
	Values             []string
}

// ChecklistCSV is the parsed form of a checklist import.
type ChecklistCSV struct {
	// Header holds the non-due column names when the input had a header line.
	Header []string
	Rows   []CSVRow
	// HasDueColumn reports whether the leading field of every row was read as the due
	// offset in minutes.
	HasDueColumn bool
}

type csvRecord struct {
	line   int
	fields []string
}

// ParseChecklistCSV reads checklist rows. Blank lines are skipped and records may have
// differing field counts; fitting them to columns is up to the caller.
//
// The leading field is the due offset in minutes only when it is an integer or blank
// on every row. Otherwise it is an ordinary value like the rest.
func ParseChecklistCSV(r io.Reader, hasHeader bool) (*ChecklistCSV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var header []string
	var records []csvRecord
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(ErrInvalidCSV, err.Error())
		}
		line, _ := reader.FieldPos(0)

		if hasHeader && header == nil {
			for _, name := range record {
				name = strings.TrimSpace(name)
				if name == "" {
					return nil, errors.Wrapf(ErrInvalidCSV, "line %d: blank column name", line)
				}
				header = append(header, name)
			}
			continue
		}
		records = append(records, csvRecord{line: line, fields: record})
	}

	if len(records) == 0 {
		return nil, errors.Wrap(ErrInvalidCSV, "no task rows")
	}

	parsed := &ChecklistCSV{HasDueColumn: leadingFieldIsDue(records)}
	skip := 0
	if parsed.HasDueColumn {
		skip = 1
	}
	if len(header) > skip {
		parsed.Header = header[skip:]
	}

	for _, record := range records {
		row := CSVRow{Line: record.line}
		if parsed.HasDueColumn {
			if minutes, err := strconv.Atoi(strings.TrimSpace(record.fields[0])); err == nil {
				row.DueRelativeMinutes = &minutes
			}
		}
		for _, value := range record.fields[skip:] {
			row.Values = append(row.Values, strings.TrimSpace(value))
		}
		parsed.Rows = append(parsed.Rows, row)
	}
	return parsed, nil
}

func leadingFieldIsDue(records []csvRecord) bool {
	for _, record := range records {
		field := strings.TrimSpace(record.fields[0])
		if field == "" {
			continue
		}
		if _, err := strconv.Atoi(field); err != nil {
			return false
		}
	}
	return true
}

// HeaderColumns builds a column layout from a CSV header: the due column followed by
// one SHORT_STRING column per header name.
func (p *ChecklistCSV) HeaderColumns() []ChecklistColumn {
	columns := []ChecklistColumn{DueColumn()}
	for _, name := range p.Header {
		columns = append(columns, ChecklistColumn{Name: name, Type: ColumnTypeShortString, IsRemovable: true})
	}
	return NormalizeColumns(columns)
}
