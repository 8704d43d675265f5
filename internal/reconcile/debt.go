package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"posrecon/internal/ledger"
	"posrecon/internal/model"
	"posrecon/internal/textnorm"
)

// party one customer's debt total on one side of one store.
type party struct {
	code   string
	name   string
	amount decimal.Decimal
}

// debtSide customers of one store on one side, split by whether they carry a usable code.
type debtSide struct {
	coded map[string]*party // normalized code -> party
	named map[string]*party // normalized name -> codeless party
}

func newDebtSide() *debtSide {
	return &debtSide{coded: map[string]*party{}, named: map[string]*party{}}
}

func (s *debtSide) add(code, name string, amount decimal.Decimal, usable bool) {
	if usable {
		key := textnorm.NormalizeEntityCode(code)
		if p, ok := s.coded[key]; ok {
			p.amount = p.amount.Add(amount)
			return
		}
		s.coded[key] = &party{code: key, name: name, amount: amount}
		return
	}
	key := textnorm.NormalizeKey(name)
	if key == "" {
		return
	}
	if p, ok := s.named[key]; ok {
		p.amount = p.amount.Add(amount)
		return
	}
	s.named[key] = &party{name: name, amount: amount}
}

// debtStore both sides of one canonical store.
type debtStore struct {
	display string
	pos     *debtSide
	ledger  *debtSide
}

// Debt reconciles per-customer debt between POS debt lines and a debt ledger.
// Stores are matched on their canonical key; customers first by code, then by name among codeless entries.
func Debt(pos []model.DebtLine, rows []ledger.DebtRow, t Tables) []Record {
	excluded := make(map[string]bool, len(t.ExcludedCustomers))
	for _, name := range t.ExcludedCustomers {
		excluded[textnorm.NormalizeKey(name)] = true
	}
	usable := func(code string) bool {
		return !textnorm.IsBlankCode(code) && code != t.UnknownCode
	}

	stores := map[string]*debtStore{}
	storeFor := func(key, display string) *debtStore {
		s, ok := stores[key]
		if !ok {
			s = &debtStore{display: display, pos: newDebtSide(), ledger: newDebtSide()}
			stores[key] = s
		}
		return s
	}

	for _, line := range pos {
		if excluded[textnorm.NormalizeKey(line.CustomerName)] {
			continue
		}
		s := storeFor(ledger.StoreKey(line.Store), textnorm.StripParenSuffix(line.Store))
		s.pos.add(line.CustomerCode, line.CustomerName, line.Debt, usable(line.CustomerCode))
	}
	for _, row := range rows {
		if excluded[textnorm.NormalizeKey(row.CustomerName)] {
			continue
		}
		key := row.StoreKey
		if key == "" {
			key = ledger.StoreKey(row.StoreName)
		}
		s := storeFor(key, textnorm.StripParenSuffix(row.StoreName))
		s.ledger.add(row.CustomerCode, row.CustomerName, row.Debt, usable(row.CustomerCode))
	}

	var out []Record
	for _, s := range stores {
		out = append(out, s.reconcile()...)
	}
	sortRecords(out)
	return out
}

func (s *debtStore) reconcile() []Record {
	var out []Record
	consumed := map[string]bool{}

	// pass 1: by code
	for _, code := range unionKeys(s.pos.coded, s.ledger.coded) {
		p, l := s.pos.coded[code], s.ledger.coded[code]
		switch {
		case p != nil && l != nil:
			consumed[textnorm.NormalizeKey(p.name)] = true
			consumed[textnorm.NormalizeKey(l.name)] = true
			if match, emit := compare(p.amount, l.amount); emit {
				out = append(out, s.record(code, p.name, Some(p.amount), Some(l.amount), match, ""))
			}
		case p != nil:
			out = append(out, s.mergeByName(p, s.ledger, consumed, true)...)
		default:
			out = append(out, s.mergeByName(l, s.pos, consumed, false)...)
		}
	}

	// pass 2: codeless entries by name
	for _, key := range unionKeys(s.pos.named, s.ledger.named) {
		if consumed[key] {
			continue
		}
		p, l := s.pos.named[key], s.ledger.named[key]
		switch {
		case p != nil && l != nil:
			if match, emit := compare(p.amount, l.amount); emit {
				out = append(out, s.record("", p.name, Some(p.amount), Some(l.amount), match, NoteNoCode))
			}
		case p != nil:
			if !p.amount.IsZero() {
				out = append(out, s.record("", p.name, Some(p.amount), None(), false, NoteMissingOnLedger+" "+NoteNoCode))
			}
		default:
			if !l.amount.IsZero() {
				out = append(out, s.record("", l.name, None(), Some(l.amount), false, NoteMissingOnPOS+" "+NoteNoCode))
			}
		}
	}
	return out
}

// mergeByName handles a code present on one side only. A codeless entry with the same name on the
// other side is merged into a single record; otherwise the code is reported as missing there.
func (s *debtStore) mergeByName(coded *party, other *debtSide, consumed map[string]bool, codedOnPOS bool) []Record {
	key := textnorm.NormalizeKey(coded.name)
	if m, ok := other.named[key]; ok && !consumed[key] {
		consumed[key] = true
		posAmt, ledgerAmt := coded.amount, m.amount
		if !codedOnPOS {
			posAmt, ledgerAmt = m.amount, coded.amount
		}
		if match, emit := compare(posAmt, ledgerAmt); emit {
			return []Record{s.record(coded.code, coded.name, Some(posAmt), Some(ledgerAmt), match, NoteMatchedByName)}
		}
		return nil
	}
	consumed[key] = true
	if coded.amount.IsZero() {
		return nil
	}
	if codedOnPOS {
		return []Record{s.record(coded.code, coded.name, Some(coded.amount), None(), false, NoteMissingOnLedger)}
	}
	return []Record{s.record(coded.code, coded.name, None(), Some(coded.amount), false, NoteMissingOnPOS)}
}

func (s *debtStore) record(code, name string, pos, led Value, match bool, note string) Record {
	return Record{
		Store:        s.display,
		Entity:       name,
		CustomerCode: code,
		CustomerName: name,
		POSValue:     pos,
		LedgerValue:  led,
		IsMatch:      match,
		Note:         note,
	}
}

func unionKeys(a, b map[string]*party) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
