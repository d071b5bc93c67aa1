package runner

import (
	"github.com/farmledger/inventory-sheets/gsheets"
	"github.com/farmledger/inventory-sheets/inventory"
)

const (
	InventoryTable = "inventory"
	SummaryTable   = "summary"
)

// Tables lays out the derived inventory as output tables: the inventory records
// (upserted by item), the monthly summary and the cleaned ledger of each feed
// (overwritten).
func Tables(job Job, inv *inventory.Inventory) []gsheets.Table {
	tables := []gsheets.Table{}

	if job.Inventory != "" {
		rows := [][]string{}
		for _, r := range inv.Sorted() {
			rows = append(rows, r.Values())
		}

		tables = append(tables, gsheets.Table{
			Name:   InventoryTable,
			Area:   job.Inventory,
			Mode:   gsheets.Upsert,
			Header: inventory.RecordHeader,
			Rows:   rows,
			Key:    0,
			Stamp:  len(inventory.RecordHeader) - 1,
		})
	}

	if job.Summary != "" {
		rows := [][]string{}
		for _, s := range inv.Summary {
			rows = append(rows, s.Values())
		}

		tables = append(tables, gsheets.Table{
			Name:   SummaryTable,
			Area:   job.Summary,
			Mode:   gsheets.Overwrite,
			Header: inventory.SummaryHeader,
			Rows:   rows,
			Stamp:  -1,
		})
	}

	for _, ledger := range inv.Ledgers {
		if ledger.Feed.Clean == "" {
			continue
		}

		tables = append(tables, gsheets.Table{
			Name:   ledger.Feed.Clean,
			Area:   ledger.Feed.Clean,
			Mode:   gsheets.Overwrite,
			Header: ledger.Header,
			Rows:   ledger.Rows,
			Stamp:  -1,
		})
	}

	return tables
}
