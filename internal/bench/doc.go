// Package bench measures keyed child reordering.
//
// A run mounts a <ul> of N keyed <li> elements into an in-memory document
// and re-renders it in a new order each round: reversed, or shuffled with a
// seeded source. Every round is timed, the host mutations it caused are
// counted, and the resulting order is checked against the requested one.
//
// Reports are JSON and can be uploaded to S3 with a Store.
package bench
