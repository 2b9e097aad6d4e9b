package provider

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"chartlab/internal/errors"
	"chartlab/internal/models"
)

// DateLayout is the date format of CSV files.
const DateLayout = "2006-01-02"

// CSVRecord is one row of a daily close file. An empty close is missing.
type CSVRecord struct {
	Date  string `csv:"date"`
	Close string `csv:"close"`
}

// ReadCSV parses date,close rows into a series sorted by date. Dates are
// YYYY-MM-DD, RFC 3339 or unix milliseconds.
func ReadCSV(r io.Reader) (models.Series, error) {
	var records []*CSVRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.Wrap(err, "failed to parse csv")
	}

	series := make(models.Series, 0, len(records))
	for i, rec := range records {
		t, err := parseDate(rec.Date)
		if err != nil {
			return nil, errors.NewValidationError("date", rec.Date, "row "+strconv.Itoa(i+2)+": unrecognized date")
		}
		c, err := parseClose(rec.Close)
		if err != nil {
			return nil, errors.NewValidationError("close", rec.Close, "row "+strconv.Itoa(i+2)+": not a number")
		}
		series = append(series, models.Sample{Time: t, Close: c})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series, nil
}

// WriteCSV writes series as date,close rows.
func WriteCSV(w io.Writer, series models.Series) error {
	records := make([]*CSVRecord, len(series))
	for i, smp := range series {
		rec := &CSVRecord{Date: smp.Time.UTC().Format(DateLayout)}
		if smp.Valid() {
			rec.Close = strconv.FormatFloat(smp.Close, 'f', -1, 64)
		}
		records[i] = rec
	}
	return gocsv.Marshal(records, w)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dayOf(t), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return dayOf(time.UnixMilli(ms)), nil
}

func parseClose(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan", "na":
		return models.Missing, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return models.Missing, nil
	}
	return v, nil
}

// CSV reads one <ticker>.csv file per symbol from a directory.
type CSV struct {
	dir string
}

// NewCSV creates a CSV fetcher over dir.
func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

// Name returns "csv".
func (c *CSV) Name() string {
	return "csv"
}

// FileName maps a ticker to its file name; ':' becomes '_'.
func FileName(ticker string) string {
	return strings.ReplaceAll(ticker, ":", "_") + ".csv"
}

// FetchDaily reads the ticker's file and keeps the rows in [from, to].
func (c *CSV) FetchDaily(ctx context.Context, ticker string, market models.Market, from, to time.Time) (models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(c.dir, FileName(ticker)))
	if os.IsNotExist(err) {
		return nil, errors.NewDataError("csv", ticker, "no file in "+c.dir, errors.ErrSymbolNotFound)
	}
	if err != nil {
		return nil, errors.NewProviderError("csv", ticker, "open file", err)
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return nil, errors.NewProviderError("csv", ticker, "read file", err)
	}
	return inRange(series, from, to), nil
}

var _ Fetcher = (*CSV)(nil)
