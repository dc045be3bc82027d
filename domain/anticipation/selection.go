package anticipation

import (
	"encoding/json"
	"errors"

	"github.com/artpar/installpay/domain/invoice"
)

// ErrSelectionFrozen is returned when toggling after a payment attempt started.
var ErrSelectionFrozen = errors.New("selection is frozen while a payment is in progress")

// Selection is an ordered set of invoice ids chosen for anticipation.
// Methods return new values; a Selection is never mutated in place.
type Selection struct {
	ids    []string
	frozen bool
}

// NewSelection builds a selection from ids, dropping duplicates.
func NewSelection(ids ...string) Selection {
	var s Selection
	for _, id := range ids {
		if !s.Contains(id) {
			s.ids = append(s.ids, id)
		}
	}
	return s
}

// Toggle adds id if absent and removes it if present.
func (s Selection) Toggle(id string) (Selection, error) {
	if s.frozen {
		return s, ErrSelectionFrozen
	}

	out := Selection{ids: make([]string, 0, len(s.ids)+1)}
	removed := false
	for _, existing := range s.ids {
		if existing == id {
			removed = true
			continue
		}
		out.ids = append(out.ids, existing)
	}
	if !removed {
		out.ids = append(out.ids, id)
	}
	return out, nil
}

// Freeze returns a copy that rejects further toggles.
func (s Selection) Freeze() Selection {
	s.ids = append([]string(nil), s.ids...)
	s.frozen = true
	return s
}

// Frozen reports whether toggles are rejected.
func (s Selection) Frozen() bool { return s.frozen }

// Contains reports whether id is selected.
func (s Selection) Contains(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Len returns the number of selected ids.
func (s Selection) Len() int { return len(s.ids) }

// IDs returns the selected ids in selection order.
func (s Selection) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Resolve returns the selected invoices from the candidates, in selection
// order. Ids that are not among the candidates are reported as an error.
func (s Selection) Resolve(candidates []invoice.Invoice) ([]invoice.Invoice, error) {
	byID := make(map[string]invoice.Invoice, len(candidates))
	for _, inv := range candidates {
		byID[inv.ID] = inv
	}

	out := make([]invoice.Invoice, 0, len(s.ids))
	for _, id := range s.ids {
		inv, ok := byID[id]
		if !ok {
			return nil, &InvoiceError{ID: id, Err: ErrUnknownInvoice}
		}
		out = append(out, inv)
	}
	return out, nil
}

type selectionJSON struct {
	IDs    []string `json:"ids"`
	Frozen bool     `json:"frozen,omitempty"`
}

// MarshalJSON encodes the selection for flow persistence.
func (s Selection) MarshalJSON() ([]byte, error) {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(selectionJSON{IDs: ids, Frozen: s.frozen})
}

// UnmarshalJSON decodes a persisted selection.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw selectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NewSelection(raw.IDs...)
	s.frozen = raw.Frozen
	return nil
}
