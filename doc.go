// Copyright 2023 uhppoted@twyst.co.za. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package inventory-sheets maintains a poultry farm stock inventory kept in Google Sheets.

inventory-sheets reads the stock inflow and release ledgers from a source spreadsheet, derives the
current inventory per product and a monthly stock summary and writes them to an output spreadsheet.
It can be used from the command line but is really intended to be run from a cron job: rows that are
already up to date are not rewritten, so an interrupted or overlapping run is repaired by the next one.

inventory-sheets supports the following commands:

  - sync, to rebuild the inventory, summary and cleaned ledger worksheets
  - compare, to report the changes a sync would make without modifying the output spreadsheet
  - get, to download a Google Sheets worksheet as a TSV file or Excel workbook
  - put, to store a TSV file to a Google Sheets worksheet
  - version, to display the current version
*/
package sheets
