package txpager

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"gorm.io/gorm"
)

// Direction is the sort direction of one ORDER BY term.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (d Direction) Valid() bool {
	return d == DirectionASC || d == DirectionDESC
}

type (
	// OrderBy is a single ORDER BY term.
	OrderBy struct {
		Column    string
		Direction Direction
	}

	// Orderings is the ORDER BY list of a paged query. Consecutive offset
	// pages neither overlap nor skip rows only when the list ends in a unique
	// column set, see WithTiebreak.
	Orderings []OrderBy

	ColumnAlias = string

	// ColumnMapping maps sort aliases exposed to clients to column names,
	// qualified where a bare name would be ambiguous.
	ColumnMapping = map[ColumnAlias]string
)

// Column names are interpolated into SQL, so only identifier characters and
// quotes are allowed.
var _columnNameCharset = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// Validate reports an ErrInvalidOrdering for an unknown direction or a column
// name that is empty or has characters outside the identifier charset.
func (o OrderBy) Validate() error {
	switch {
	case !o.Direction.Valid():
		return fmt.Errorf("%w: direction '%s'", ErrInvalidOrdering, o.Direction)
	case o.Column == "":
		return fmt.Errorf("%w: empty column name", ErrInvalidOrdering)
	case !lo.Every(_columnNameCharset, []rune(o.Column)):
		return fmt.Errorf("%w: column name contains forbidden symbols '%s'", ErrInvalidOrdering, o.Column)
	}

	return nil
}

// String renders the term, e.g. "created_at DESC".
func (o OrderBy) String() string {
	return o.Column + " " + string(o.Direction)
}

// Validate returns ErrUnordered for an empty list, otherwise the first invalid
// term's error.
func (o Orderings) Validate() error {
	if len(o) == 0 {
		return ErrUnordered
	}

	for i, term := range o {
		if err := term.Validate(); err != nil {
			return fmt.Errorf("ordering term %d: %w", i, err)
		}
	}

	return nil
}

// Terms renders each term: [{a ASC} {b DESC}] gives ["a ASC", "b DESC"].
func (o Orderings) Terms() []string {
	return lo.Map(o, func(term OrderBy, _ int) string {
		return term.String()
	})
}

// String renders the ORDER BY list without the keyword, e.g. "a ASC, b DESC".
func (o Orderings) String() string {
	return strings.Join(o.Terms(), ", ")
}

// WithTiebreak appends column ascending unless the list already sorts by it.
// With a unique column (usually the primary key) the order becomes total,
// which offset pages need to be stable. o is not modified.
func (o Orderings) WithTiebreak(column string) Orderings {
	if lo.ContainsBy(o, func(term OrderBy) bool { return term.Column == column }) {
		return o
	}

	return append(slices.Clip(o), OrderBy{Column: column, Direction: DirectionASC})
}

// Apply adds the ORDER BY list to a gorm query. An empty list adds nothing.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	if len(o) == 0 {
		return db
	}

	return db.Order(o.String())
}

// ApplySelect adds the ORDER BY list to a squirrel select.
func (o Orderings) ApplySelect(b squirrel.SelectBuilder) squirrel.SelectBuilder {
	return b.OrderBy(o.Terms()...)
}

// ApplyBun adds the ORDER BY list to a bun select. An empty list adds nothing.
func (o Orderings) ApplyBun(q *bun.SelectQuery) *bun.SelectQuery {
	if len(o) == 0 {
		return q
	}

	return q.OrderExpr(o.String())
}

// ParseSort resolves client sort terms of the form "alias asc|desc" (case
// insensitive direction) through mapping. An unknown alias fails with the
// closest known one as a hint.
func ParseSort(terms []string, mapping ColumnMapping) (Orderings, error) {
	orderings := make(Orderings, 0, len(terms))

	for _, term := range terms {
		fields := strings.Fields(term)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: malformed sort term '%s', want \"alias asc|desc\"", ErrInvalidOrdering, term)
		}

		alias, direction := fields[0], fields[1]

		column, known := mapping[alias]
		if !known || column == "" {
			return nil, fmt.Errorf("%w: unknown sort alias '%s'. closest: '%s'",
				ErrInvalidOrdering, alias, closestAlias(alias, lo.Keys(mapping)))
		}

		orderBy := OrderBy{Column: column, Direction: Direction(strings.ToUpper(direction))}
		if err := orderBy.Validate(); err != nil {
			return nil, err
		}

		orderings = append(orderings, orderBy)
	}

	return orderings, nil
}

// closestAlias returns the alias with the smallest edit distance to input.
// Ties go to the alphabetically first alias.
func closestAlias(input ColumnAlias, aliases []ColumnAlias) ColumnAlias {
	aliases = slices.Sorted(slices.Values(aliases))
	distances := lo.SliceToMap(aliases, func(alias ColumnAlias) (ColumnAlias, int) {
		return alias, levenshtein([]rune(alias), []rune(input))
	})

	return lo.MinBy(aliases, func(a, b ColumnAlias) bool {
		return distances[a] < distances[b]
	})
}
