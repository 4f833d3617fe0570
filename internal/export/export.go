// Package export writes listings to CSV or JSON files for offline use.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jobwatch/jobwatch/internal/listing"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", s)
	}
}

// DefaultFilename builds a timestamped output name so repeated exports never
// overwrite each other.
func DefaultFilename(f Format, now time.Time) string {
	return fmt.Sprintf("104_jobs_%s.%s", now.Format("20060102_150405"), f)
}

// WriteFile writes the listings to path in the given format.
func WriteFile(path string, f Format, listings []listing.Listing) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file %q: %w", path, err)
	}
	defer out.Close()

	switch f {
	case FormatCSV:
		err = writeCSV(out, listings)
	case FormatJSON:
		err = writeJSON(out, listings)
	default:
		err = fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return err
	}
	return out.Close()
}

var csvHeader = []string{
	"job_id", "job_name", "cust_name", "job_url", "job_addr_no_desc",
	"salary_desc", "job_detail", "appear_date", "job_cat", "job_type",
	"work_exp", "edu", "skill", "benefit", "remote_work",
}

func writeCSV(out *os.File, listings []listing.Listing) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range listings {
		record := []string{
			l.JobID, l.JobName, l.CustName, l.JobURL, l.JobAddr,
			l.SalaryDesc, l.JobDetail, l.AppearDate, l.JobCat, l.JobType,
			l.WorkExp, l.Edu, l.Skill, l.Benefit, fmt.Sprintf("%t", l.RemoteWork),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeJSON(out *os.File, listings []listing.Listing) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if listings == nil {
		listings = []listing.Listing{}
	}
	if err := enc.Encode(listings); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
