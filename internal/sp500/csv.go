package sp500

import (
	"bytes"
	"context"

	"github.com/gocarina/gocsv"

	"earnings-tracker/internal/apiclient"
	"earnings-tracker/internal/errors"
)

// Constituent is one row of the constituents CSV
// (Symbol,Security,GICS Sector,...).
type Constituent struct {
	Symbol string `csv:"Symbol"`
	Name   string `csv:"Security"`
	Sector string `csv:"GICS Sector"`
}

// CSVSource loads constituents from a published CSV file.
type CSVSource struct {
	client *apiclient.Client
}

// NewCSVSource reads the CSV at url through the retrying client.
func NewCSVSource(url string, opts ...apiclient.Option) *CSVSource {
	opts = append([]apiclient.Option{apiclient.WithAccept(apiclient.AcceptCSV)}, opts...)
	return &CSVSource{client: apiclient.New(url, opts...)}
}

// Load implements Loader.
func (s *CSVSource) Load(ctx context.Context) ([]string, error) {
	data, err := s.client.GetRaw(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(data)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(rows))
	for _, r := range rows {
		symbols = append(symbols, r.Symbol)
	}
	return symbols, nil
}

// ParseCSV decodes constituent rows. Columns other than Symbol are optional.
func ParseCSV(data []byte) ([]Constituent, error) {
	var rows []Constituent
	if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
		return nil, errors.NewDataError("sp500", "", "parsing constituents csv", err)
	}
	return rows, nil
}
