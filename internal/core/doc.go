// # Architecture
//
// The ingestion side is organized around a small set of collaborators:
//
//   - Rule catalog: built-in rule sets are registered at init time with
//     [Register]; plugin contributions are gated by a semver constraint in
//     [CatalogBuilder.Contribute]. The built [Catalog] is immutable.
//   - Validator: evaluates a [Draft] against the generic rules and the rules
//     of every platform the draft declares, collecting every [Violation].
//   - RowProcessor: the per-row state machine, see processor.go.
//   - BatchRunner: feeds a [RowSource] through the processor in order.
//   - FailureSink and RetryLoader: abandoned rows are written to an artifact
//     and can be replayed until every entry is resolved.
//
// The read side resolves field names and shortcuts with [FieldProjector]
// and compiles filter expressions with [PredicateEvaluator].
//
// # Registering a platform
//
//	core.Register(core.RuleSet{
//	    Platform: "ebay",
//	    Label:    "eBay",
//	    Set: []core.Rule{
//	        core.MaxLength(core.ColTitle, 80, "Exceeds {platform}'s 80-character limit"),
//	    },
//	})
//
// # Batch flow
//
//  1. [NewCSVSource] checks the file layout; a malformed file fails before
//     any row runs
//  2. [BatchRunner.Run] drives each row to Committed or Abandoned
//  3. [FailureSink.PersistResult] writes abandoned rows to failed_<mode>_<ts>
//  4. [RetryLoader.Load] replays the artifact; [FailureSink.Reconcile]
//     marks resolved entries and removes the file once all are resolved
//
// There is no batch transaction: each row commits on its own.
//
// # Error Handling
//
// Technical errors and violation tags are mapped to user-friendly messages
// using [MapError] and [MapTag]:
//
//   - VAL001-VAL007: Validation errors
//   - FILE001-FILE003: Row source and failure report errors
//   - DB001-DB006: Storage errors
//   - QRY001-QRY002: Field and filter errors
package core
