// Package input reads company lists from CSV files.
package input

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/kostichs/company-enricher/internal/model"
)

var nameColumns = map[string]struct{}{
	"company_name": {},
	"company":      {},
	"name":         {},
	"companies":    {},
}

var urlColumns = map[string]struct{}{
	"official_website": {},
	"website":          {},
	"url":              {},
	"domain":           {},
	"homepage":         {},
}

// ReadCompanies parses a CSV of company names into pending records, one per
// row in input order. A header row is recognized by column name; without
// one the first column is the company name. Blank names are skipped and a
// second recognized column supplies the optional seed URL.
func ReadCompanies(path string) ([]*model.CompanyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: open %s", path)
	}
	defer f.Close()
	return parseCompanies(f)
}

func parseCompanies(r io.Reader) ([]*model.CompanyRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "input: parse csv")
	}
	if len(rows) == 0 {
		return nil, eris.New("input: empty file")
	}

	nameCol, urlCol, hasHeader := detectColumns(rows[0])
	if hasHeader {
		rows = rows[1:]
	}

	var records []*model.CompanyRecord
	index := 0
	for _, row := range rows {
		if nameCol >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}
		index++
		rec := &model.CompanyRecord{
			Index:  index,
			Name:   name,
			Status: model.StatusPending,
		}
		if urlCol >= 0 && urlCol < len(row) {
			rec.SeedURL = strings.TrimSpace(row[urlCol])
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, eris.New("input: no company names found")
	}
	return records, nil
}

// detectColumns inspects a first row for recognized header names. When none
// match, the row is data and column 0 holds the name.
func detectColumns(row []string) (nameCol, urlCol int, hasHeader bool) {
	nameCol, urlCol = 0, -1
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		key = strings.ReplaceAll(key, " ", "_")
		if _, ok := nameColumns[key]; ok {
			nameCol = i
			hasHeader = true
		}
		if _, ok := urlColumns[key]; ok && urlCol < 0 {
			urlCol = i
			hasHeader = true
		}
	}
	return nameCol, urlCol, hasHeader
}
