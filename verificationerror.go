package schemarecon

// A VerificationError is a warning about the ledger, returned by
// [Reconciler.VerifyLedger]. It is one of:
//
//   - a ledger entry whose name matches none of the known targets, usually
//     because a release that added the target was rolled back.
//   - a ledger entry whose checksum differs from the target's current
//     checksum, because the target was edited after it was applied.
//
// Neither means the schema is wrong: edits to an applied target are never
// re-run, so a human should look at the target and decide whether a new
// target is needed.
type VerificationError struct {
	Message string
	Fields  map[string]any
}
