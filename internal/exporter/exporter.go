package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"regportal/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	header = []string{
		"Reg ID", "Name", "Mobile", "Designation", "Sector", "Unit",
		"Admitted", "Admission Time", "Registered At",
	}

	fileNameRegex = regexp.MustCompile(`^registrations-(all|sector-([0-9]+))-[0-9]{8}-[0-9]{6}-[0-9a-f]{8}\.csv$`)
)

// FileName builds the download name of an export. sectorID 0 means every
// sector; token must be eight lowercase hex characters.
func FileName(sectorID int, at time.Time, token string) string {
	scope := "all"
	if sectorID > 0 {
		scope = "sector-" + strconv.Itoa(sectorID)
	}
	return fmt.Sprintf("registrations-%s-%s-%s.csv", scope, at.UTC().Format("20060102-150405"), token)
}

// ParseFileName reports whether name is a well-formed export file name and
// which sector it is scoped to (0 for all sectors).
func ParseFileName(name string) (sectorID int, ok bool) {
	m := fileNameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	if m[2] == "" {
		return 0, true
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return id, true
}

func WriteCSV(w io.Writer, regs []model.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range regs {
		if err := cw.Write(row(&regs[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(r *model.Registration) []string {
	var sector, unit string
	if r.Sector != nil {
		sector = r.Sector.Name
	}
	if r.Unit != nil {
		unit = r.Unit.Name
	}
	admitted, admittedAt := "No", ""
	if r.Admitted {
		admitted = "Yes"
	}
	if r.AdmissionTime != nil {
		admittedAt = r.AdmissionTime.UTC().Format(timeLayout)
	}
	return []string{
		r.RegID,
		r.Name,
		r.Mobile,
		r.Designation,
		sector,
		unit,
		admitted,
		admittedAt,
		r.CreatedAt.UTC().Format(timeLayout),
	}
}

// WriteFile writes regs as CSV to dir/name. The file appears only once it is
// complete, so a download never sees a partial export.
func WriteFile(dir, name string, regs []model.Registration) (string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid export file name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err := WriteCSV(tmp, regs); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to publish export: %w", err)
	}
	return path, nil
}
