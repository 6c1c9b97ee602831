// Package transit fetches arrival predictions for a single stop.
//
// # Overview
//
// The Client issues one GET per call against a jPredictions-style endpoint
// and turns the response into a Snapshot: an ordered, immutable list of
// Arrival values stamped with the time of the fetch and a ULID used by the
// render loop to notice that something new arrived.
//
// # Request Handling
//
// Every request:
//   - Appends StopID to the configured URL, keeping any existing query
//   - Sets api_key, Cache-Control: no-cache, Accept and User-Agent headers
//   - Verifies TLS certificates (TLS 1.2 minimum)
//   - Is bounded by the configured request timeout and the caller's context
//
// The API key is only ever placed on the request header, and that header is
// dropped when a redirect leaves the configured host or downgrades to plain
// http. Request logging records host, path and stop, never headers.
//
// # Normalization
//
// Bus and rail responses use different field names. For each prediction:
//
//	route    RouteID, then Line            default "N/A"
//	headsign DirectionText, then DestinationName  default "N/A"
//	minutes  Minutes, then Min             default 0
//
// Minutes may arrive as a number or a numeric string. Negative values clamp
// to 0 and values beyond a day clamp to 1440. "ARR", "BRD" and other
// non-numeric markers become 0. A response with no Predictions key is logged
// at warning level and yields an empty snapshot rather than an error.
//
// # Error Handling
//
// FetchArrivals returns *FetchError for every failure, classified by Kind:
//
//   - KindTransport: DNS, connection, TLS, timeout
//   - KindHTTP: non-2xx status (Status holds the code)
//   - KindDecode: body is not JSON
//
// None of these are fatal. The fetch loop logs them and keeps the previous
// snapshot on screen.
package transit
