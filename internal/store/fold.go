// ABOUTME: Registers the fold() SQL function used for case-insensitive search
// ABOUTME: Folding uses Unicode rules from golang.org/x/text so Cyrillic names match too

package store

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// FoldFunc is the SQL name of the case-folding function.
const FoldFunc = "fold"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(FoldFunc, 1, foldValue); err != nil {
		panic(fmt.Sprintf("registering %s(): %v", FoldFunc, err))
	}
}

// Fold returns the Unicode case-folded form of s.
// A new Caser per call: cases.Caser is stateful and not safe for concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return Fold(v), nil
	case []byte:
		return Fold(string(v)), nil
	default:
		return Fold(fmt.Sprint(v)), nil
	}
}
