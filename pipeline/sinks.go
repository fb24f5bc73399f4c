package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

var (
	reviewColumns     = []string{"source", "author", "date", "rating", "title", "body", "sentiment"}
	failedPageColumns = []string{"source", "page", "category", "reason"}
)

// OpenSink opens the sink for format at path. "dual" writes CSV to path
// and JSON lines next to it with a .jsonl extension.
func OpenSink(format, path string) (Sink, error) {
	switch format {
	case "csv":
		return NewCSVSink(path)
	case "json":
		return NewJSONLSink(path)
	case "dual":
		csvSink, err := NewCSVSink(path)
		if err != nil {
			return nil, err
		}
		jsonSink, err := NewJSONLSink(withExt(path, ".jsonl"))
		if err != nil {
			_ = csvSink.Close()
			return nil, err
		}
		return Tee(csvSink, jsonSink), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// FailedPagesPath is where a CSV sink writing to path puts its manifest.
func FailedPagesPath(path string) string {
	return withExt(path, ".failed.csv")
}

// CSVSink writes reviews to one CSV file and failed pages to a second one,
// created on the first failed page.
type CSVSink struct {
	path    string
	reviews *csvFile
	failed  *csvFile
}

// NewCSVSink creates path and writes the review header.
func NewCSVSink(path string) (*CSVSink, error) {
	reviews, err := createCSV(path, reviewColumns)
	if err != nil {
		return nil, err
	}
	return &CSVSink{path: path, reviews: reviews}, nil
}

// WriteReview appends one row. An unscored review leaves the sentiment cell empty.
func (s *CSVSink) WriteReview(r models.ScoredReview) error {
	score := ""
	if r.Scored() {
		score = strconv.FormatFloat(*r.Sentiment, 'f', 4, 64)
	}
	return s.reviews.write([]string{
		r.Source, r.Author, r.Date, strconv.Itoa(r.Rating), r.Title, r.Body, score,
	})
}

func (s *CSVSink) WriteFailedPage(source string, page models.FailedPage) error {
	if s.failed == nil {
		failed, err := createCSV(FailedPagesPath(s.path), failedPageColumns)
		if err != nil {
			return err
		}
		s.failed = failed
	}
	return s.failed.write([]string{source, strconv.Itoa(page.Page), page.Category, page.Reason})
}

// Close flushes and closes both files.
func (s *CSVSink) Close() error {
	err := s.reviews.close()
	if s.failed != nil {
		err = errors.Join(err, s.failed.close())
	}
	return err
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}
	c := &csvFile{f: f, w: csv.NewWriter(f)}
	if err := c.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write %s: %w", c.f.Name(), err)
	}
	return nil
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return fmt.Errorf("flush %s: %w", c.f.Name(), err)
	}
	return c.f.Close()
}

// JSONLSink writes one JSON object per line. Every line carries a "kind"
// of "review" or "failed_page"; unscored reviews omit "sentiment".
type JSONLSink struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

type reviewLine struct {
	Kind string `json:"kind"`
	models.ScoredReview
}

type failedPageLine struct {
	Kind   string `json:"kind"`
	Source string `json:"source"`
	models.FailedPage
}

// NewJSONLSink creates path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &JSONLSink{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

func (s *JSONLSink) WriteReview(r models.ScoredReview) error {
	return s.encode(reviewLine{Kind: "review", ScoredReview: r})
}

func (s *JSONLSink) WriteFailedPage(source string, page models.FailedPage) error {
	return s.encode(failedPageLine{Kind: "failed_page", Source: source, FailedPage: page})
}

func (s *JSONLSink) encode(v any) error {
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", s.f.Name(), err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *JSONLSink) Close() error {
	if err := s.buf.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush %s: %w", s.f.Name(), err)
	}
	return s.f.Close()
}

type tee []Sink

// Tee sends every row to each sink in turn.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) WriteReview(r models.ScoredReview) error {
	for _, s := range t {
		if err := s.WriteReview(r); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) WriteFailedPage(source string, page models.FailedPage) error {
	for _, s := range t {
		if err := s.WriteFailedPage(source, page); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, even after a failure.
func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
