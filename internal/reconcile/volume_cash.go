package reconcile

import (
	"posrecon/internal/ledger"
	"posrecon/internal/model"
	"posrecon/internal/textnorm"
)

// storeLookup resolves ledger entity codes to POS aggregates.
type storeLookup struct {
	names    map[string]string // store code -> display name
	mapping  map[string]string // normalized ledger code -> store code
	byCode   map[string]model.StoreAggregate
	byName   map[string]model.StoreAggregate
	observed map[string]bool // store codes seen on the ledger side
}

func newStoreLookup(pos []model.StoreAggregate, mapping map[string]string, t Tables) *storeLookup {
	l := &storeLookup{
		names:    make(map[string]string, len(t.Stores)),
		mapping:  make(map[string]string, len(mapping)),
		byCode:   make(map[string]model.StoreAggregate, len(pos)),
		byName:   make(map[string]model.StoreAggregate, len(pos)),
		observed: make(map[string]bool),
	}
	for _, s := range t.Stores {
		l.names[s.Code] = s.Name
	}
	for code, store := range mapping {
		l.mapping[textnorm.NormalizeEntityCode(code)] = store
	}
	for _, a := range pos {
		if a.StoreCode != "" {
			l.byCode[a.StoreCode] = a
		}
		if a.StoreName != "" {
			l.byName[textnorm.NormalizeKey(a.StoreName)] = a
		}
	}
	return l
}

// storeFor returns the mapped store code and display name for a ledger entity code.
func (l *storeLookup) storeFor(ledgerCode string) (code, name string, ok bool) {
	code, ok = l.mapping[textnorm.NormalizeEntityCode(ledgerCode)]
	if !ok {
		return "", "", false
	}
	name = l.names[code]
	if name == "" {
		name = code
	}
	return code, name, true
}

func (l *storeLookup) aggregate(code, name string) (model.StoreAggregate, bool) {
	if a, ok := l.byCode[code]; ok {
		return a, true
	}
	a, ok := l.byName[textnorm.NormalizeKey(name)]
	return a, ok
}

// unobserved master-list stores never reached from the ledger side, in master-list order.
func (l *storeLookup) unobserved(t Tables) []model.Store {
	var out []model.Store
	for _, s := range t.Stores {
		if !l.observed[s.Code] {
			out = append(out, s)
		}
	}
	return out
}

// Volume reconciles per-product quantities against a volume ledger.
// Ledger rows whose code is not in the volume mapping are skipped.
func Volume(pos []model.StoreAggregate, rows []ledger.VolumeRow, t Tables) []Record {
	lookup := newStoreLookup(pos, t.VolumeMapping, t)
	var out []Record

	for _, row := range rows {
		code, name, ok := lookup.storeFor(row.CustomerCode)
		if !ok {
			continue
		}
		lookup.observed[code] = true

		agg, found := lookup.aggregate(code, name)
		for _, product := range t.Products {
			ledgerQty := row.Products[product]
			if !found {
				if !ledgerQty.IsZero() {
					out = append(out, Record{
						Store:       name,
						Entity:      product,
						POSValue:    None(),
						LedgerValue: Some(ledgerQty),
						Note:        NoteMissingOnPOS,
					})
				}
				continue
			}
			posQty := agg.Quantity(product).Round(0)
			if match, emit := compare(posQty, ledgerQty); emit {
				out = append(out, Record{
					Store:       name,
					Entity:      product,
					POSValue:    Some(posQty),
					LedgerValue: Some(ledgerQty),
					IsMatch:     match,
				})
			}
		}
	}

	for _, s := range lookup.unobserved(t) {
		agg, found := lookup.aggregate(s.Code, s.Name)
		if !found {
			continue
		}
		for _, product := range t.Products {
			q := agg.Quantity(product).Round(0)
			if q.IsZero() {
				continue
			}
			out = append(out, Record{
				Store:       s.Name,
				Entity:      product,
				POSValue:    Some(q),
				LedgerValue: None(),
				Note:        NoteMissingOnLedger,
			})
		}
	}

	sortRecords(out)
	return out
}

// Cash reconciles the retail cash figure against a cash ledger.
func Cash(pos []model.StoreAggregate, rows []ledger.CashRow, t Tables) []Record {
	lookup := newStoreLookup(pos, t.CashMapping, t)
	var out []Record

	for _, row := range rows {
		code, name, ok := lookup.storeFor(row.CustomerCode)
		if !ok {
			continue
		}
		lookup.observed[code] = true

		agg, found := lookup.aggregate(code, name)
		if !found {
			if !row.Cash.IsZero() {
				out = append(out, Record{
					Store:       name,
					Entity:      CashEntityLabel,
					POSValue:    None(),
					LedgerValue: Some(row.Cash),
					Note:        NoteMissingOnPOS,
				})
			}
			continue
		}
		if match, emit := compare(agg.Cash, row.Cash); emit {
			out = append(out, Record{
				Store:       name,
				Entity:      CashEntityLabel,
				POSValue:    Some(agg.Cash),
				LedgerValue: Some(row.Cash),
				IsMatch:     match,
			})
		}
	}

	for _, s := range lookup.unobserved(t) {
		agg, found := lookup.aggregate(s.Code, s.Name)
		if !found || agg.Cash.IsZero() {
			continue
		}
		out = append(out, Record{
			Store:       s.Name,
			Entity:      CashEntityLabel,
			POSValue:    Some(agg.Cash),
			LedgerValue: None(),
			Note:        NoteMissingOnLedger,
		})
	}

	sortRecords(out)
	return out
}
