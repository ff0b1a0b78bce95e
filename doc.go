// Package txpager provides offset pagination and transaction lifecycle
// primitives for code that issues paged SQL queries inside transactions.
//
// Overview
//
// txpager has two independent halves:
//   - Page and Paginate: a Page is built from raw (possibly untyped) user
//     input. Queries fetch Size+1 rows starting at Offset; Paginate trims
//     the extra row and derives prev/next offsets from it, so no COUNT
//     query is needed to know whether a next page exists.
//   - Transaction: wraps a connection borrowed from a pool, issues BEGIN on
//     construction and guarantees the connection is finished and released
//     exactly once. Double failures (commit then rollback,
//     rollback then release) are reported together as an *AggregateError.
//
// Key concepts
//   - Size: either AllRows or Rows(n).
//   - PageClause / PagedSelect / Page.Apply / Page.ApplyBun: append the
//     LIMIT/OFFSET clause to squirrel, gorm or bun queries.
//   - Conn and Pool: boundary interfaces with pgx and database/sql adapters.
//
// Typical flow:
//
//	page, err := txpager.PageFromQuery(r.URL.Query())
//	tx, err := txpager.BeginPgx(ctx, pool)
//	rows, err := tx.QueryStatement(ctx, txpager.PagedSelect(selectUsers, page))
//	users := scanUsers(rows)
//	err = tx.Commit(ctx)
//	result := txpager.Paginate(users, page)
package txpager
