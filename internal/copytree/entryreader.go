package copytree

import "github.com/kailayerhq/kai-copytree/internal/wc"

// wcEntryReader adapts an AdminStore to copypair.EntryReader, for the
// WC->repo promotion step of normalization.
type wcEntryReader struct {
	store wc.AdminStore
}

func (r wcEntryReader) EntryURL(path string) (string, int64, bool, error) {
	entry, err := r.store.Entry(path)
	if err != nil {
		return "", 0, false, err
	}
	if entry == nil {
		return "", 0, false, nil
	}
	return entry.URL, entry.Revision, true, nil
}
