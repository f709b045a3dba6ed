package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

var headers = map[inventory.Domain][]string{
	inventory.Storage: {"provider", "name", "location", "class", "created_at", "size_bytes", "object_count"},
	inventory.Compute: {"provider", "name", "instance_type", "state", "location", "cpu_count", "launched_at"},
	inventory.Billing: {"provider", "service", "cost", "currency"},
}

// WriteFile writes rows of domain d to path, creating parent directories. Unknown values are
// written as empty cells.
func WriteFile(path string, d inventory.Domain, rows []inventory.Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Write(f, d, rows)
}

// Write writes a header line and one record per row.
func Write(out io.Writer, d inventory.Domain, rows []inventory.Row) error {
	header, ok := headers[d]
	if !ok {
		return fmt.Errorf("%w: %q", inventory.ErrUnknownDomain, d)
	}
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(record(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func record(r inventory.Row) []string {
	switch v := r.(type) {
	case inventory.StorageRow:
		return []string{string(v.Provider), v.Name, str(v.Location), str(v.Class), ts(v.CreatedAt), num(v.SizeBytes), num(v.ObjectCount)}
	case inventory.ComputeRow:
		return []string{string(v.Provider), v.Name, str(v.InstanceType), str(v.State), str(v.Location), num(v.CPUCount), ts(v.LaunchedAt)}
	case inventory.BillingRow:
		cost := ""
		if v.Cost.Valid {
			cost = v.Cost.Decimal.String()
		}
		return []string{string(v.Provider), v.Service, cost, v.Currency}
	}
	return nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func ts(t *inventory.Timestamp) string {
	if t == nil {
		return ""
	}
	if t.Raw != "" {
		return t.Raw
	}
	return t.Time.Format("2006-01-02T15:04:05Z07:00")
}
