// Package healthpoller implements the health panel: it fetches the service's
// root health endpoint with a hard timeout, renders the report into an
// injected page (status pill, identity fields, checks table, raw JSON), and
// copies the raw JSON to the clipboard on request.
//
// The page is addressed through data attributes (see the Attr constants).
// A page without the data-health-page marker disables the poller entirely;
// any other missing element is skipped when rendering.
//
// Overall health follows the HTTP status of the endpoint. A 200 response with
// failing individual checks still renders as Healthy, with the failing rows
// shown in the table.
package healthpoller
