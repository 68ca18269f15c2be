package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maximefrech68-hue/monthe/internal/domain"
)

// SheetClient loads products from the spreadsheet CSV export. Responses are
// cached for a short TTL; concurrent cache misses are collapsed with
// singleflight so a burst of requests triggers a single fetch.
type SheetClient struct {
	url    string
	client *http.Client
	ttl    time.Duration

	sfg singleflight.Group

	mu        sync.RWMutex
	cached    []domain.Product
	fetchedAt time.Time
}

func NewSheetClient(url string, client *http.Client, ttl time.Duration) *SheetClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SheetClient{
		url:    url,
		client: client,
		ttl:    ttl,
	}
}

func (s *SheetClient) Products(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		products := s.cached
		s.mu.RUnlock()
		return products, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sfg.Do("products", func() (interface{}, error) {
		products, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cached = products
		s.fetchedAt = time.Now()
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *SheetClient) fetch(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}

	return ParseProductsCSV(string(body))
}

// ParseProductsCSV turns the sheet export into products. The export may use
// comma or semicolon separators depending on locale; rows with active set to
// a false-like value are filtered out, an empty active cell keeps the row
// visible.
func ParseProductsCSV(data string) ([]domain.Product, error) {
	data = strings.TrimPrefix(data, "\uFEFF")

	reader := csv.NewReader(strings.NewReader(data))
	reader.Comma = detectSeparator(data)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse catalog csv: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("parse catalog csv: no header row")
	}

	headers := records[0]
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.TrimSpace(h)] = i
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	products := make([]domain.Product, 0, len(records)-1)
	for _, row := range records[1:] {
		id := cell(row, "id")
		if id == "" {
			continue
		}
		if !activeVisible(cell(row, "active")) {
			continue
		}

		products = append(products, domain.Product{
			ID:         id,
			Name:       cell(row, "name"),
			PriceCents: parsePriceCents(cell(row, "price_eur")),
			Stock:      parseStock(cell(row, "stock")),
			Category:   cell(row, "category"),
			ImageURL:   cell(row, "image_url"),
			ShortDesc:  cell(row, "short_desc"),
		})
	}
	return products, nil
}

// detectSeparator picks semicolon only when the header line has semicolons
// and no commas, matching the export's locale behaviour.
func detectSeparator(data string) rune {
	header := data
	if i := strings.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if strings.Contains(header, ";") && !strings.Contains(header, ",") {
		return ';'
	}
	return ','
}

func parsePriceCents(s string) int64 {
	if s == "" {
		return 0
	}
	// Locale exports may use a decimal comma.
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100))
}

// parseStock returns -1 for a blank cell: stock not tracked.
func parseStock(s string) int {
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func activeVisible(s string) bool {
	switch strings.ToLower(s) {
	case "false", "faux", "0", "no", "n":
		return false
	}
	return true
}
