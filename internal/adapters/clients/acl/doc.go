// Package acl is the Anti-Corruption Layer between remote quote sources and
// the domain.
//
// Remote services describe quotes in their own shape. The remote sync
// endpoint, for example, answers with blog-post style records:
//
//	[{"userId": 1, "id": 1, "title": "...", "body": "..."}]
//
// Adapters in this package decode those DTOs (which never leave the package),
// validate them, and translate them to [domain.Quote]. Transport failures and
// HTTP statuses become domain errors:
//
//   - 401/403 → [domain.ErrForbidden]
//   - 404 → [domain.ErrNotFound]
//   - other 4xx, 5xx, network → [domain.ErrUnavailable]
//   - malformed or non-array bodies → [domain.ErrParse]
//
// Client-level errors ([clients.ErrCircuitOpen], [clients.ErrRetriesExhausted])
// are also translated to [domain.ErrUnavailable].
//
// Reusable pieces: [BaseAdapter], [MapHTTPError], [ParseErrorResponse],
// [DecodeResponse], and [TranslateSlice]. [RemoteQuotesClient] is the
// adapter behind ports.RemoteQuoteSource.
package acl
