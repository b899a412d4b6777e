// Package core provides the business logic for capturing form submissions
// ("leads") and turning them back into flat reports.
//
// This package is independent of any transport or storage technology. It
// talks to persistence through the [CaptureStore] and [ExportStore] interfaces and can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Capture
//
// A submission is stored entity-attribute-value style: one row in leads and
// one row in lead_data per captured field. The flow is:
//
//  1. [Recorder.Capture] returns [ErrCaptureDisabled] for forms without leads
//  2. A lead row is inserted with its master form resolved
//  3. Fields are resolved, sub-form fields through their master aliases
//  4. Each posted value is labelled ([ComputeLabel]) and normalized ([NormalizeValue])
//  5. Pre-store hooks may modify the candidate record before it is inserted
//  6. Post-store hooks run once all fields are stored
//
// Everything happens inside one [CaptureStore.InTx] call, so a failing hook or an
// unparseable date leaves no partial lead behind.
//
// # Export
//
// [Denormalizer.Pivot] folds lead_data rows into one row per lead with a
// column per master field. Three fixed columns lead every row: created, form
// title and member name. Export configurations stored by users are read with
// [ConfigLoader.Load].
//
// # Error Handling
//
// Domain failures are typed ([ValidationError], [NotFoundError],
// [IntegrityError]) and mapped to user-facing messages with [MapError].
package core
