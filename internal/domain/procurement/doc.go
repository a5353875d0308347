// Package procurement contains the Procurement bounded context.
// It models the supplier purchase-order portal data that the ERP
// synchronization pipeline writes.
//
// Key concepts:
//   - Provider: supplier identified by its tax ID (NIT)
//   - PurchaseOrder: order header keyed by (provider, document number)
//   - OrderLine: product line keyed by (order, reference)
//   - SyncRun: audit record of one synchronization pass, used as the watermark source
//
// Order aggregates (subtotal, tax, total) are only ever derived from the
// order's lines through PurchaseOrder.RecomputeTotals.
package procurement
