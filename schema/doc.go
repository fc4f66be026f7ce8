// Package schema describes how a Go row type maps onto versebase fields.
//
// A row type is registered once with [Define], listing its columns in storage
// order. The first column is the primary key and must be an Int32:
//
//	type Artist struct {
//	    ID   int32
//	    Name string
//	}
//
//	var Artists = schema.MustDefine("artists",
//	    schema.Int32("id", func(a *Artist) *int32 { return &a.ID }),
//	    schema.String("name", func(a *Artist) *string { return &a.Name }),
//	)
//
// The resulting [Definition] implements [Schema], the capability the table
// layer consumes. Hand-written implementations of [Schema] work as well.
package schema
