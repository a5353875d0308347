// Package integration contains the ports to external systems used by the
// procurement pipeline.
//
// Key concepts:
//   - ERPSource: port for reading purchase-order lines from the ERP reporting API
//   - RawLine: one untyped order line as delivered by the ERP
//   - MessagingGateway: port for outbound WhatsApp notifications
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
