package app

import (
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	"github.com/ledgerline/ledgerline/internal/posting"
)

// Observers fans posting and import events out to metrics and the
// dashboard cache. Nil members are skipped.
type Observers struct {
	Postings []posting.Observer
	Imports  []items.ImportObserver
}

// ObservePosting implements posting.Observer.
func (o Observers) ObservePosting(kind, op, outcome string) {
	for _, obs := range o.Postings {
		if obs != nil {
			obs.ObservePosting(kind, op, outcome)
		}
	}
}

// ObserveImport implements items.ImportObserver.
func (o Observers) ObserveImport(created, skipped, failed int) {
	for _, obs := range o.Imports {
		if obs != nil {
			obs.ObserveImport(created, skipped, failed)
		}
	}
}
