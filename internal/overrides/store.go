package overrides

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/baignoire/fitmatch/internal/domain"
)

// pairKey identifies an unordered SKU pair: the two canonical SKUs in
// lexicographic order.
type pairKey struct {
	lo, hi string
}

func makeKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Store serves the manual compatibility overrides: a blacklist of pairs that
// must never appear together and a whitelist of pairs forced into results.
// Both come from operator-maintained workbooks, are loaded lazily on first
// use, and change only through an explicit Reload.
type Store struct {
	logger        *slog.Logger
	whitelistPath string
	blacklistPath string

	once sync.Once

	mu        sync.RWMutex
	blacklist map[pairKey]struct{}
	whitelist map[pairKey]struct{}
	partners  map[string][]string
}

// NewStore creates an override store over the two workbook paths. Nothing is
// read until the first lookup or Reload.
func NewStore(logger *slog.Logger, whitelistPath, blacklistPath string) *Store {
	return &Store{
		logger:        logger,
		whitelistPath: whitelistPath,
		blacklistPath: blacklistPath,
		blacklist:     make(map[pairKey]struct{}),
		whitelist:     make(map[pairKey]struct{}),
		partners:      make(map[string][]string),
	}
}

// IsBlacklisted reports whether the pair is blacklisted, in either order.
func (s *Store) IsBlacklisted(a, b string) bool {
	s.once.Do(s.lazyLoad)

	key := makeKey(domain.CanonicalSKU(a), domain.CanonicalSKU(b))

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blacklist[key]
	return ok
}

// WhitelistedPartnersOf returns every counterparty the whitelist pairs with
// the SKU, in file order.
func (s *Store) WhitelistedPartnersOf(sku string) []string {
	s.once.Do(s.lazyLoad)

	s.mu.RLock()
	defer s.mu.RUnlock()
	found := s.partners[domain.CanonicalSKU(sku)]
	if len(found) == 0 {
		return nil
	}
	out := make([]string, len(found))
	copy(out, found)
	return out
}

// Counts returns the loaded whitelist and blacklist pair counts.
func (s *Store) Counts() (whitelist, blacklist int) {
	s.once.Do(s.lazyLoad)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.whitelist), len(s.blacklist)
}

// Reload re-reads both workbooks and replaces the cached pair sets. Unlike
// the lazy first load, a read failure is returned to the caller and the
// previous sets stay in place.
func (s *Store) Reload() error {
	s.once.Do(func() {})

	wl, err := s.loadPairs(s.whitelistPath, domain.OverrideWhitelist)
	if err != nil {
		return err
	}
	bl, err := s.loadPairs(s.blacklistPath, domain.OverrideBlacklist)
	if err != nil {
		return err
	}

	s.install(wl, bl)
	return nil
}

// lazyLoad performs the first-use load. Failures degrade to empty override
// sets so a bad or missing workbook never blocks catalog reads.
func (s *Store) lazyLoad() {
	wl, err := s.loadPairs(s.whitelistPath, domain.OverrideWhitelist)
	if err != nil {
		s.logger.Warn("whitelist overrides unavailable", slog.String("error", err.Error()))
		wl = nil
	}
	bl, err := s.loadPairs(s.blacklistPath, domain.OverrideBlacklist)
	if err != nil {
		s.logger.Warn("blacklist overrides unavailable", slog.String("error", err.Error()))
		bl = nil
	}

	s.install(wl, bl)
}

func (s *Store) install(wl, bl []domain.OverridePair) {
	blacklist := make(map[pairKey]struct{}, len(bl))
	for _, p := range bl {
		blacklist[makeKey(p.SKUX, p.SKUY)] = struct{}{}
	}

	whitelist := make(map[pairKey]struct{}, len(wl))
	partners := make(map[string][]string, len(wl))
	for _, p := range wl {
		key := makeKey(p.SKUX, p.SKUY)
		if _, dup := whitelist[key]; dup {
			continue
		}
		whitelist[key] = struct{}{}
		partners[p.SKUX] = append(partners[p.SKUX], p.SKUY)
		if p.SKUY != p.SKUX {
			partners[p.SKUY] = append(partners[p.SKUY], p.SKUX)
		}
	}

	s.mu.Lock()
	s.blacklist = blacklist
	s.whitelist = whitelist
	s.partners = partners
	s.mu.Unlock()

	s.logger.Info("compatibility overrides loaded",
		slog.Int("whitelist_pairs", len(whitelist)),
		slog.Int("blacklist_pairs", len(blacklist)),
	)
}

// loadPairs reads one override workbook: first sheet, header row skipped, the
// first two columns of each row forming an unordered pair. A missing file is
// an empty set, not an error.
func (s *Store) loadPairs(path, kind string) ([]domain.OverridePair, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s.logger.Warn("override file missing, using empty set",
			slog.String("kind", kind),
			slog.String("path", path),
		)
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s overrides: %w", kind, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s overrides: %w", kind, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	pairs := make([]domain.OverridePair, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		x := domain.CanonicalSKU(row[0])
		y := domain.CanonicalSKU(row[1])
		if x == "" || y == "" {
			continue
		}
		pairs = append(pairs, domain.OverridePair{SKUX: x, SKUY: y, Kind: kind})
	}
	return pairs, nil
}
