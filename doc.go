// Package corochan provides typed CSP channels and a fair multi-way Select
// that races channel reads, channel writes, futures, and cancellable
// functions against each other, breaking ties uniformly at random and
// guaranteeing every losing operation is canceled before Select returns.
//
// A Channel[T] behaves like Go's built-in chan, with one important
// addition: every blocking operation takes a context.Context and returns
// promptly once it's done, and every operation has a selectable form that
// Select can race without either consuming a value it doesn't end up using
// or leaking a goroutine if it loses.
//
//	ch := corochan.NewChannel[int](0)
//	go ch.Write(ctx, 42)
//	v, ok, err := ch.Read(ctx)
//
// Select races a set of named cases and returns whichever one wins:
//
//	res, err := corochan.Select(ctx,
//		corochan.Recv("a", chA, func(v int, ok bool) { ... }),
//		corochan.Recv("b", chB, func(v int, ok bool) { ... }),
//		corochan.FuncCase("timeout", sleep(time.Second), func(struct{}, error) { ... }),
//	)
package corochan
