// Package clients implements the client ledger.
//
// A client is stored as two rows: contact details in client_info and
// billing in client_financial, linked one-to-one by client_id with
// ON DELETE CASCADE. Ledger reads and writes both halves inside a single
// store scope, so callers always see a client as one record.
//
// # Balances
//
// Balances are decimal.Decimal in Go and REAL in SQLite. Values are
// rounded to two places when read back.
//
// # Search
//
// Search folds both the query and the column values with the store's
// fold() SQL function and tests with instr(), so "%" and "_" in a query
// match literally and Cyrillic names match regardless of case.
//
// # Calls
//
// RecordCall stamps last_call, last_caller and optionally last_offer and
// appends a record_call audit entry; CallHistory reads those entries back.
package clients
