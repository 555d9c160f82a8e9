// Package badger is a local search index stored in BadgerDB.
//
// Records are kept under chunkrec:<source>\x00<chunk_id> so that all chunks
// of one file share a key prefix. The source is the file's path relative to
// the input directory, so equal base names in different directories do not
// collide. Values are encoded with mus-go. Uploading a file replaces every
// record previously stored for it in a single transaction. FindSimilar
// scans the records and ranks them by cosine similarity.
package badger
