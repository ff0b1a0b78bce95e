package txpager

import (
	"github.com/Masterminds/squirrel"
	"github.com/uptrace/bun"
	"gorm.io/gorm"
)

// PageClause returns the trailing LIMIT/OFFSET clause for page:
//
//	LIMIT ? OFFSET ?      -- args: size+1, offset
//	LIMIT ALL OFFSET ?    -- args: offset
//
// Values are passed as placeholders; the statement builder rewrites them to
// its placeholder format.
func PageClause(page Page) squirrel.Sqlizer {
	limit, ok := page.DatasetLimit()
	if !ok {
		return squirrel.Expr("LIMIT ALL OFFSET ?", page.offset)
	}

	return squirrel.Expr("LIMIT ? OFFSET ?", limit, page.offset)
}

// PagedSelect appends PageClause to the statement.
//
// IMPORTANT: the statement must already be deterministically ordered
// (ORDER BY on a unique column set), otherwise pages may overlap; prefer
// OrderedSelect, which enforces an ordering. Do not combine with
// SelectBuilder.Limit or SelectBuilder.Offset.
func PagedSelect(statement squirrel.SelectBuilder, page Page) squirrel.SelectBuilder {
	return statement.SuffixExpr(PageClause(page))
}

// Apply applies the page to a gorm query: LIMIT size+1 and OFFSET. An AllRows
// page only sets the offset, gorm has no way to render LIMIT ALL.
func (p Page) Apply(db *gorm.DB) *gorm.DB {
	limit, ok := p.DatasetLimit()
	if !ok {
		return db.Limit(-1).Offset(p.offset)
	}

	return db.Limit(limit).Offset(p.offset)
}

// ApplyBun applies the page to a bun select query with the same policy as
// Apply.
func (p Page) ApplyBun(q *bun.SelectQuery) *bun.SelectQuery {
	if limit, ok := p.DatasetLimit(); ok {
		q = q.Limit(limit)
	}

	return q.Offset(p.offset)
}

// OrderedSelect orders statement by ordering and appends PageClause. ordering
// must pass Validate: an empty one fails with ErrUnordered.
func OrderedSelect(statement squirrel.SelectBuilder, ordering Orderings, page Page) (squirrel.SelectBuilder, error) {
	if err := ordering.Validate(); err != nil {
		return statement, err
	}

	return PagedSelect(ordering.ApplySelect(statement), page), nil
}

// ApplyOrdered is Apply preceded by ordering.Apply. ordering must pass
// Validate.
func (p Page) ApplyOrdered(db *gorm.DB, ordering Orderings) (*gorm.DB, error) {
	if err := ordering.Validate(); err != nil {
		return db, err
	}

	return p.Apply(ordering.Apply(db)), nil
}

// ApplyOrderedBun is ApplyBun preceded by ordering.ApplyBun. ordering must
// pass Validate.
func (p Page) ApplyOrderedBun(q *bun.SelectQuery, ordering Orderings) (*bun.SelectQuery, error) {
	if err := ordering.Validate(); err != nil {
		return q, err
	}

	return p.ApplyBun(ordering.ApplyBun(q)), nil
}
