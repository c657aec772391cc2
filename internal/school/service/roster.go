package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	id "schoolpay/pkg/domain"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/requestcontext"
)

// RosterEntry is one student row from a roster file. CustomValues are keyed
// by the school's registered custom field names.
type RosterEntry struct {
	FirstName    string
	LastName     string
	Email        string
	CustomValues map[string]string
}

// RowError reports a roster row that could not be enrolled. Line numbers are
// 1-based and count the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one roster import.
type ImportResult struct {
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	NewFields []string   `json:"new_fields,omitempty"`
	Errors    []RowError `json:"errors,omitempty"`
}

var requiredColumns = []string{"first_name", "last_name", "email"}

// maxRosterErrors aborts imports that are clearly the wrong file.
const maxRosterErrors = 50

// ImportRoster enrolls students from a CSV stream. The header must carry
// first_name, last_name and email; any other column becomes a custom roster
// field, registered on the school the first time it appears. Rows that fail
// are reported per line, the rest are enrolled anyway.
func (s *Service) ImportRoster(ctx context.Context, schoolID id.SchoolID, r io.Reader) (*ImportResult, error) {
	sc, err := s.getOwned(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "roster file is empty or not CSV")
	}
	columns, customCols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	// Register columns the school has not seen before.
	result := &ImportResult{}
	for _, col := range customCols {
		if !sc.HasCustomField(col) {
			sc.CustomFields = append(sc.CustomFields, col)
			result.NewFields = append(result.NewFields, col)
		}
	}
	if len(result.NewFields) > 0 {
		if err := s.update(ctx, sc); err != nil {
			return nil, err
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Reason: "unparseable row"})
			if len(result.Errors) >= maxRosterErrors {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "too many bad rows, aborting import")
			}
			continue
		}

		entry, err := buildEntry(record, columns, customCols)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Reason: err.Error()})
			continue
		}

		created, err := s.directory.EnrollStudent(ctx, schoolID, entry)
		if err != nil {
			s.logger.ErrorContext(ctx, "roster enrollment failed",
				"request_id", requestcontext.RequestID(ctx),
				"school_id", schoolID,
				"line", line,
				"error", err,
			)
			result.Errors = append(result.Errors, RowError{Line: line, Reason: "enrollment failed"})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	return result, nil
}

// mapColumns indexes the header, separating required columns from custom
// ones. Column names are matched case-insensitively.
func mapColumns(header []string) (map[string]int, []string, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "roster header has an empty column name")
		}
		if _, dup := columns[name]; dup {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("duplicate roster column %q", name))
		}
		columns[name] = i
	}
	for _, req := range requiredColumns {
		if _, ok := columns[req]; !ok {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("roster is missing required column %q", req))
		}
	}

	var customCols []string
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if columns[name] != i {
			continue
		}
		if !isRequired(name) {
			customCols = append(customCols, name)
		}
	}
	return columns, customCols, nil
}

func isRequired(name string) bool {
	for _, req := range requiredColumns {
		if name == req {
			return true
		}
	}
	return false
}

func buildEntry(record []string, columns map[string]int, customCols []string) (RosterEntry, error) {
	get := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	entry := RosterEntry{
		FirstName: get("first_name"),
		LastName:  get("last_name"),
		Email:     get("email"),
	}
	if entry.FirstName == "" || entry.LastName == "" {
		return RosterEntry{}, errors.New("first and last name are required")
	}
	if entry.Email == "" || !strings.Contains(entry.Email, "@") {
		return RosterEntry{}, errors.New("a valid email is required")
	}

	for _, col := range customCols {
		if v := get(col); v != "" {
			if entry.CustomValues == nil {
				entry.CustomValues = make(map[string]string)
			}
			entry.CustomValues[col] = v
		}
	}
	return entry, nil
}
