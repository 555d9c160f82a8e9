// Package azuresearch uploads ChunkRecords to an Azure AI Search index using
// the documents API. Requests go through an azcore pipeline that sets the
// api-key header and retries throttled or failed batches.
package azuresearch
