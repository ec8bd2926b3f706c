// Real-time compliance enforcement for support-agent messaging, plus batch
// fraud pattern detection over the customer population.
//
// The moderation engine (`engine`) classifies every outbound agent message
// through an external policy oracle (`oracle`), maintains each agent's
// enforcement state machine (strikes, locking), and keeps the append-only
// conversation ledger. The fraud detector (`fraud`) scans a customer snapshot
// for four coordinated-abuse signatures and emits ordered threat clusters.
// Admin remediation (`remediation`) bans customer clusters and unlocks agent
// accounts. Records persist through the `recordstore` interfaces (in-process
// or redis). See `cmd/aegisd` for a daemon built on these packages.
package aegis
