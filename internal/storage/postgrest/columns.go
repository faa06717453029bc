package postgrest

import (
	"errors"
	"regexp"
	"sync"
)

// columnMap tracks, per table, columns the deployed schema turned out not to
// have. It is learned from drift errors (one probe per column per process) and
// consulted before every write, so the write path degrades to whatever columns
// the remote actually has without per-write trial and error.
type columnMap struct {
	mu      sync.Mutex
	missing map[string]map[string]struct{}
}

func newColumnMap(seed map[string][]string) *columnMap {
	m := &columnMap{missing: make(map[string]map[string]struct{})}
	for table, cols := range seed {
		for _, c := range cols {
			m.markMissing(table, c)
		}
	}
	return m
}

func (m *columnMap) markMissing(table, col string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing[table] == nil {
		m.missing[table] = make(map[string]struct{})
	}
	m.missing[table][col] = struct{}{}
}

// strip returns rows without the columns known to be missing from table.
// Rows are copied only when something has to be removed.
func (m *columnMap) strip(table string, rows []map[string]any) []map[string]any {
	m.mu.Lock()
	gone := m.missing[table]
	m.mu.Unlock()
	if len(gone) == 0 {
		return rows
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			if _, drop := gone[k]; !drop {
				cp[k] = v
			}
		}
		out[i] = cp
	}
	return out
}

// PostgREST reports unknown payload columns as PGRST204 ("Could not find the
// 'X' column of 'table' in the schema cache"); raw Postgres says
// `column "x" does not exist`. Both shapes occur depending on where the
// request dies.
var missingColumnRes = []*regexp.Regexp{
	regexp.MustCompile(`[Cc]ould not find the '([^']+)' column`),
	regexp.MustCompile(`column "?([A-Za-z0-9_]+)"?[^"]* does not exist`),
}

// missingColumn extracts the offending column name from a drift error.
func missingColumn(err error) (string, bool) {
	var re *RemoteError
	if !errors.As(err, &re) {
		return "", false
	}
	for _, rx := range missingColumnRes {
		if m := rx.FindStringSubmatch(re.Message); m != nil {
			return m[1], true
		}
	}
	return "", false
}
