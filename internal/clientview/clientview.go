// ABOUTME: Table view helpers for clients: column display and per-column toggling sort
// ABOUTME: Numbers sort numerically, dates chronologically with unset dates last, text by collation

package clientview

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/generated/Chill-Man/internal/clients"
)

// Field names a client column.
type Field string

const (
	FieldID         Field = "id"
	FieldLastName   Field = "last_name"
	FieldFirstName  Field = "first_name"
	FieldMiddleName Field = "middle_name"
	FieldBirthDate  Field = "birth_date"
	FieldPhone      Field = "phone"
	FieldEmail      Field = "email"
	FieldAddress    Field = "address"
	FieldTariff     Field = "tariff"
	FieldBalance    Field = "balance"
	FieldLastCall   Field = "last_call"
	FieldLastCaller Field = "last_caller"
	FieldLastOffer  Field = "last_offer"
	FieldCreatedAt  Field = "created_at"
	FieldUpdatedAt  Field = "updated_at"
)

// Columns is the default table column order.
var Columns = []Field{
	FieldID, FieldLastName, FieldFirstName, FieldMiddleName, FieldBirthDate,
	FieldPhone, FieldEmail, FieldAddress, FieldTariff, FieldBalance,
	FieldLastCall, FieldLastCaller, FieldLastOffer,
}

var allFields = append(slices.Clone(Columns), FieldCreatedAt, FieldUpdatedAt)

// ParseField validates a column name.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if slices.Contains(allFields, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown column %q", s)
}

type kind int

const (
	kindText kind = iota
	kindNumber
	kindDate
)

func (f Field) kind() kind {
	switch f {
	case FieldID, FieldBalance:
		return kindNumber
	case FieldBirthDate, FieldLastCall, FieldCreatedAt, FieldUpdatedAt:
		return kindDate
	default:
		return kindText
	}
}

// Direction is a sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

const (
	dateLayout     = "02.01.2006"
	dateTimeLayout = "02.01.2006 15:04"
)

// Display renders one field of c the way tables show it.
func Display(c clients.Client, f Field) string {
	switch f {
	case FieldID:
		return strconv.FormatInt(c.ID, 10)
	case FieldLastName:
		return c.Profile.LastName
	case FieldFirstName:
		return c.Profile.FirstName
	case FieldMiddleName:
		return c.Profile.MiddleName
	case FieldBirthDate:
		return formatTime(c.Profile.BirthDate, dateLayout)
	case FieldPhone:
		return c.Profile.Phone
	case FieldEmail:
		return c.Profile.Email
	case FieldAddress:
		return c.Profile.Address
	case FieldTariff:
		return c.Billing.Tariff
	case FieldBalance:
		return c.Billing.Balance.StringFixed(2)
	case FieldLastCall:
		return formatTime(c.LastCall, dateTimeLayout)
	case FieldLastCaller:
		return c.LastCaller
	case FieldLastOffer:
		return c.LastOffer
	case FieldCreatedAt:
		return formatTime(&c.CreatedAt, dateTimeLayout)
	case FieldUpdatedAt:
		return formatTime(&c.UpdatedAt, dateTimeLayout)
	}
	return ""
}

func formatTime(t *time.Time, layout string) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func timeOf(c clients.Client, f Field) *time.Time {
	var t *time.Time
	switch f {
	case FieldBirthDate:
		t = c.Profile.BirthDate
	case FieldLastCall:
		t = c.LastCall
	case FieldCreatedAt:
		t = &c.CreatedAt
	case FieldUpdatedAt:
		t = &c.UpdatedAt
	}
	if t != nil && t.IsZero() {
		return nil
	}
	return t
}

// Sorter remembers a direction per column. Each Sort on a column flips
// that column's direction; the first Sort on a column is ascending.
// A Sorter is not safe for concurrent use.
type Sorter struct {
	dirs     map[Field]Direction
	collator *collate.Collator
}

// NewSorter creates a Sorter with every column unsorted.
func NewSorter() *Sorter {
	return &Sorter{
		dirs:     make(map[Field]Direction),
		collator: collate.New(language.Russian),
	}
}

// Sort toggles f's direction and stably sorts cs in place by f.
// It returns the direction used.
func (s *Sorter) Sort(cs []clients.Client, f Field) Direction {
	dir := Ascending
	if prev, seen := s.dirs[f]; seen && prev == Ascending {
		dir = Descending
	}
	s.dirs[f] = dir
	s.SortBy(cs, f, dir)
	return dir
}

// SortBy stably sorts cs by f in the given direction without touching
// the remembered state.
func (s *Sorter) SortBy(cs []clients.Client, f Field, dir Direction) {
	sign := 1
	if dir == Descending {
		sign = -1
	}

	slices.SortStableFunc(cs, func(a, b clients.Client) int {
		switch f.kind() {
		case kindNumber:
			return sign * compareNumber(a, b, f)
		case kindDate:
			ta, tb := timeOf(a, f), timeOf(b, f)
			switch {
			case ta == nil && tb == nil:
				return 0
			case ta == nil:
				return 1
			case tb == nil:
				return -1
			}
			return sign * ta.Compare(*tb)
		default:
			return sign * s.collator.CompareString(Display(a, f), Display(b, f))
		}
	})
}

func compareNumber(a, b clients.Client, f Field) int {
	if f == FieldBalance {
		return a.Billing.Balance.Cmp(b.Billing.Balance)
	}
	return cmp.Compare(a.ID, b.ID)
}
