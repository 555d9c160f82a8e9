// Package docintel extracts document text with Azure AI Document Intelligence.
//
// A file is submitted to the analyze endpoint of the chosen credential, and
// the returned operation is polled until the service reports a terminal
// status. Content is requested in markdown so section headings are preserved.
// Requests run through an azcore pipeline per credential, which supplies the
// key header and retries throttled or failed calls; the long-running analysis
// is tracked with an azcore poller. Submissions are throttled per endpoint
// with a token bucket.
package docintel
