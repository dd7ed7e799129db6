// Package taxes translates between the shop's tax classes and the external
// system's VAT codes, in both directions, using the admin-configured
// mapping table.
package taxes

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/konekt/standardbooks-sync/internal/cache"
	"github.com/konekt/standardbooks-sync/internal/config"
	"github.com/konekt/standardbooks-sync/internal/standardbooks"
)

// tableTTL bounds how stale the cached external tax table may get.
const tableTTL = time.Hour

// Fetcher fetches the external tax table.
type Fetcher interface {
	GetTaxes(ctx context.Context) ([]standardbooks.TaxRow, error)
}

// Service resolves tax codes. The mapping (external VAT code to local rate
// id) and the local rate table come from settings; the external table
// itself is fetched on demand and cached.
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	rates   []config.TaxRate
	mapping map[string]int
	log     *zap.SugaredLogger
}

func NewService(fetcher Fetcher, c cache.Cache, s config.TaxSettings, log *zap.SugaredLogger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   c,
		rates:   s.Rates,
		mapping: s.Mapping,
		log:     log,
	}
}

// Table returns the external tax table as VAT code to comment, cached for
// an hour. A failed cache write is logged and otherwise ignored; the table
// was fetched either way.
func (s *Service) Table(ctx context.Context) (map[string]string, error) {
	var table map[string]string
	if ok, err := s.cache.Get(ctx, cache.TaxesKey(), &table); err == nil && ok {
		return table, nil
	}

	rows, err := s.fetcher.GetTaxes(ctx)
	if err != nil {
		return nil, err
	}

	table = make(map[string]string, len(rows))
	for _, row := range rows {
		table[row.VATCode] = row.Comment
	}

	if err := s.cache.Set(ctx, cache.TaxesKey(), table, tableTTL); err != nil {
		s.log.Warnw("failed to cache tax table", "error", err)
	}
	return table, nil
}

// MatchingTaxCode resolves a local tax class to the mapped external VAT
// code. Unmapped classes resolve to an empty string, never an error:
// invoice rows go out without a tax code rather than failing the invoice.
func (s *Service) MatchingTaxCode(taxClass string) string {
	rateID, ok := s.rateForClass(taxClass)
	if !ok {
		return ""
	}

	// Sorted iteration keeps the result stable when two external codes map
	// to the same local rate.
	codes := make([]string, 0, len(s.mapping))
	for code := range s.mapping {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if s.mapping[code] == rateID {
			return code
		}
	}
	return ""
}

// LocalTaxClass is the reverse direction, used when importing article data:
// external VAT code to the local tax class slug.
func (s *Service) LocalTaxClass(vatCode string) (string, bool) {
	rateID, ok := s.mapping[vatCode]
	if !ok {
		return "", false
	}
	for _, rate := range s.rates {
		if rate.ID == rateID {
			return rate.Slug, true
		}
	}
	return "", false
}

func (s *Service) rateForClass(taxClass string) (int, bool) {
	for _, rate := range s.rates {
		if rate.Slug == taxClass {
			return rate.ID, true
		}
	}
	return 0, false
}
