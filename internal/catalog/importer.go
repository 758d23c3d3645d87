package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/procurement-service/internal/apperror"
)

// The importer upserts products by SKU: a row whose SKU already exists
// updates that product, anything else creates one. A bad row is
// reported and skipped, it never aborts the rest of the file.

type ImportRowStatus string

const (
	ImportRowImported ImportRowStatus = "imported"
	ImportRowUpdated  ImportRowStatus = "updated"
	ImportRowError    ImportRowStatus = "error"
)

type ImportRowResult struct {
	Row    int             `json:"row"`
	Status ImportRowStatus `json:"status"`
	SKU    string          `json:"sku,omitempty"`
	Name   string          `json:"name,omitempty"`
	Reason string          `json:"reason,omitempty"`
}

type ImportResult struct {
	TotalRows int               `json:"total_rows"`
	Imported  int               `json:"imported"`
	Updated   int               `json:"updated"`
	Errors    int               `json:"errors"`
	Rows      []ImportRowResult `json:"rows"`
}

var requiredHeaders = []string{"name", "sku"}

func (s *service) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read csv: %w", err)
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(raw), "\uFEFF"))
	if text == "" {
		return nil, apperror.Validationf("CSV file is empty or has no headers")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperror.Validationf("CSV file is empty or has no headers")
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := columns[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperror.Validationf("CSV is missing required column(s): %s", strings.Join(missing, ", "))
	}

	result := &ImportResult{Rows: []ImportRowResult{}}
	for rowNum := 1; ; rowNum++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Rows = append(result.Rows, ImportRowResult{
				Row:    rowNum,
				Status: ImportRowError,
				Reason: err.Error(),
			})
			result.Errors++
			continue
		}

		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		empty := true
		for _, v := range record {
			if strings.TrimSpace(v) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		sku := field("sku")
		name := field("name")
		row := ImportRowResult{Row: rowNum, SKU: sku, Name: name}

		if name == "" || sku == "" {
			if name == "" {
				row.Reason = "name is required"
			} else {
				row.Reason = "sku is required"
			}
			row.Status = ImportRowError
			result.Rows = append(result.Rows, row)
			result.Errors++
			continue
		}

		status, err := s.upsertImportedProduct(ctx, name, sku, field("description"), field("unit"))
		if err != nil {
			log.Error().Err(err).Int("row", rowNum).Str("sku", sku).Msg("service: csv import row failed")
			row.Status = ImportRowError
			row.Reason = fmt.Sprintf("database error: %v", err)
			result.Errors++
		} else {
			row.Status = status
			if status == ImportRowImported {
				result.Imported++
			} else {
				result.Updated++
			}
		}
		result.Rows = append(result.Rows, row)
	}

	result.TotalRows = len(result.Rows)
	log.Info().
		Int("total", result.TotalRows).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("errors", result.Errors).
		Msg("service: csv import finished")
	return result, nil
}

func (s *service) upsertImportedProduct(ctx context.Context, name, sku, description, unit string) (ImportRowStatus, error) {
	if unit == "" {
		unit = "pcs"
	}
	var desc *string
	if description != "" {
		desc = &description
	}

	existing, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return ImportRowError, err
	}

	if existing != nil {
		existing.Name = name
		existing.Unit = unit
		if desc != nil {
			existing.Description = desc
		}
		if err := s.repo.UpdateProduct(ctx, existing); err != nil {
			return ImportRowError, err
		}
		return ImportRowUpdated, nil
	}

	product := &Product{Name: name, SKU: sku, Description: desc, Unit: unit}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return ImportRowError, err
	}
	return ImportRowImported, nil
}
