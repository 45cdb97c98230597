package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Feed column names. The six metadata columns are required; the report
// columns are optional and synthesized when absent.
const (
	colImageIndex    = "Image Index"
	colFindingLabels = "Finding Labels"
	colPatientID     = "Patient ID"
	colPatientAge    = "Patient Age"
	colPatientGender = "Patient Gender"
	colViewPosition  = "View Position"

	colReportText      = "report_text"
	colFindings        = "findings"
	colImpression      = "impression"
	colRecommendations = "recommendations"
	colReportType      = "report_type"
	colReportStatus    = "report_status"
)

var requiredColumns = []string{
	colImageIndex, colFindingLabels, colPatientID,
	colPatientAge, colPatientGender, colViewPosition,
}

// ReadResult carries the decoded feed plus parse bookkeeping.
type ReadResult struct {
	Records   []StudyRecord
	Malformed int
}

// ReadFile decodes the feed CSV at path. A sample limit of 0 reads every row.
func ReadFile(path string, sample int) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()
	res, err := Read(f, sample)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", path, err)
	}
	return res, nil
}

// Read streams feed rows from r, binding columns by header name. Rows that
// fail to parse or lack required values are counted as malformed and
// skipped rather than aborting the decode.
func Read(r io.Reader, sample int) (*ReadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	res := &ReadResult{}
	for {
		if sample > 0 && len(res.Records) >= sample {
			break
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Malformed++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}

		rec := StudyRecord{
			ImageIndex:    field(row, colImageIndex),
			FindingLabels: field(row, colFindingLabels),
			PatientID:     field(row, colPatientID),
			PatientGender: field(row, colPatientGender),
			ViewPosition:  field(row, colViewPosition),

			ReportText:      field(row, colReportText),
			Findings:        field(row, colFindings),
			Impression:      field(row, colImpression),
			Recommendations: field(row, colRecommendations),
			ReportType:      field(row, colReportType),
			ReportStatus:    field(row, colReportStatus),
		}
		if rec.ImageIndex == "" || rec.PatientID == "" {
			res.Malformed++
			continue
		}
		age, err := strconv.Atoi(field(row, colPatientAge))
		if err != nil || age < 0 {
			res.Malformed++
			continue
		}
		rec.PatientAge = age

		res.Records = append(res.Records, rec)
	}
	return res, nil
}
