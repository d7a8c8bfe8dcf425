// Package report renders the grade report as CSV, inline or as a background
// export job.
package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"attendancewizard/internal/grading"
	"attendancewizard/internal/metrics"
	"attendancewizard/internal/model"
	"attendancewizard/internal/queue"
)

// Header is the fixed column order of every export.
var Header = []string{
	"UIN", "Name", "Total Sessions (All)", "Regular Sessions",
	"Attended (All)", "Attended (Regular)", "Attended (Test)",
	"Attendance % (Regular)", "Grade Points",
}

// JobType tags export messages on the queue.
const JobType = "export"

// ErrFailed is returned by Path for a job whose report could not be written.
var ErrFailed = errors.New("export failed")

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []grading.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.UIN,
			r.Name,
			strconv.Itoa(r.TotalSessions),
			strconv.Itoa(r.TotalRegular),
			strconv.Itoa(r.AttendedAll),
			strconv.Itoa(r.AttendedRegular),
			strconv.Itoa(r.AttendedTest),
			strconv.FormatFloat(r.Percentage, 'f', 2, 64),
			strconv.Itoa(r.GradePoints),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Source produces the rows of a report.
type Source interface {
	Report(ctx context.Context) ([]grading.Row, error)
}

// Exporter writes report files into a directory, either directly or from
// jobs taken off a queue.
type Exporter struct {
	src Source
	q   queue.Queue
	dir string
}

// NewExporter creates an exporter writing into dir.
func NewExporter(src Source, q queue.Queue, dir string) *Exporter {
	if dir == "" {
		dir = "exports"
	}
	return &Exporter{src: src, q: q, dir: dir}
}

// FileName is the name of the file written for job id.
func FileName(id string) string {
	return "attendance_report_" + id + ".csv"
}

func failedName(id string) string {
	return FileName(id) + ".failed"
}

// Enqueue schedules an export and returns its job id.
func (e *Exporter) Enqueue(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := e.q.Publish(ctx, queue.Message{Type: JobType, Body: []byte(id)}); err != nil {
		return "", fmt.Errorf("enqueue export: %w", err)
	}
	return id, nil
}

// Write renders the report to the file for id. The file appears atomically
// so a download never sees a partial report.
func (e *Exporter) Write(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("export id %q: %w", id, err)
	}
	rows, err := e.src.Report(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(e.dir, ".export-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if err := WriteCSV(tmp, rows); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, FileName(id))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	metrics.ExportsWritten.Inc()
	return path, nil
}

// Path returns the file of a finished export. It returns ErrFailed when the
// job gave up, and model.ErrNotFound while the job is pending or when id is
// unknown.
func (e *Exporter) Path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", model.ErrNotFound
	}
	if _, err := os.Stat(filepath.Join(e.dir, failedName(id))); err == nil {
		return "", ErrFailed
	}
	path := filepath.Join(e.dir, FileName(id))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", model.ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// Run consumes export jobs until ctx ends.
func (e *Exporter) Run(ctx context.Context) error {
	msgs, err := e.q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		if msg.Type != JobType {
			continue
		}
		id := string(msg.Body)
		path, err := e.Write(ctx, id)
		if err != nil {
			log.Printf("export %s failed: %v", id, err)
			e.fail(id, err)
			continue
		}
		log.Printf("export %s written to %s", id, path)
	}
	return nil
}

// fail leaves a marker holding the error so pollers stop waiting on id.
func (e *Exporter) fail(id string, cause error) {
	if _, err := uuid.Parse(id); err != nil {
		return
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		log.Printf("export %s: record failure: %v", id, err)
		return
	}
	if err := os.WriteFile(filepath.Join(e.dir, failedName(id)), []byte(cause.Error()+"\n"), 0o644); err != nil {
		log.Printf("export %s: record failure: %v", id, err)
	}
}
