// Package deebase is a transactional data-access layer over database/sql.
//
// A Database owns the engine binding (see pkg/adapter) and hands out Table
// handles, either mounted from declared definitions or reflected from the
// live schema. Handles read and write generic records (map[string]any) or,
// when bound to a struct shape, typed values. Filter produces copy-on-write
// handles whose predicates scope every subsequent operation, and views wrap
// a handle in a read-only surface.
//
// Transaction runs a function inside a single unit-of-work carried in the
// context, so nested operations join it without parameter threading:
//
//	err := db.Transaction(ctx, func(ctx context.Context) error {
//		author, err := users.Insert(ctx, User{Name: "ada"})
//		if err != nil {
//			return err
//		}
//		_, err = posts.Insert(ctx, Post{AuthorID: author.(*User).ID})
//		return err
//	})
package deebase
