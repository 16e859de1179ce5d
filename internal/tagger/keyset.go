package tagger

import "cmskit/domain/sheet"

// KeySet is the set of key strings collected from one column of the input
// table, together with the number of rows that contributed a key.
type KeySet struct {
	keys map[string]struct{}
	rows int
}

// Has reports whether key is in the set
func (k *KeySet) Has(key string) bool {
	if k == nil {
		return false
	}
	_, ok := k.keys[key]
	return ok
}

// Len returns the number of distinct keys
func (k *KeySet) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// Rows returns how many data rows contributed a key, duplicates included
func (k *KeySet) Rows() int {
	if k == nil {
		return 0
	}
	return k.rows
}

// BuildKeySet collects the string form of every non-empty cell in keyColumn,
// skipping the header row. Rows without a value are ignored. An out-of-range
// column simply yields an empty set.
func BuildKeySet(table *sheet.Table, keyColumn int, progress ProgressFunc) *KeySet {
	ks := &KeySet{keys: make(map[string]struct{})}
	total := table.RowCount()
	for i := range table.Rows {
		rowNum := i + 1
		if rowNum > 1 {
			cell := table.Rows[i].Cell(keyColumn)
			if cell.HasValue() {
				ks.keys[cell.Text()] = struct{}{}
				ks.rows++
			}
		}
		progress.report(StageCollect, rowNum, total)
	}
	return ks
}
