// Package batcher coalesces concurrent logical requests into batched physical calls.
//
// Callers invoke Request and wait. Equivalent requests (by value) that are in
// flight at the same time share a single pending entry, so they are sent once
// and resolved from the same response item. A debounced trigger decides when
// to drain the queue; a full queue drains without waiting the debounce delay.
//
// Example:
//
//	d, err := batcher.New[arm.Request, json.RawMessage](batcher.Config{
//		MaxBatchSize:  20,
//		DebounceDelay: 50 * time.Millisecond,
//	}, transport, logger)
//	...
//	content, err := d.Request(ctx, arm.NewGetRequest(id, "2015-05-01"))
package batcher
