// Package pgvector stores ChunkRecords in PostgreSQL using the pgvector
// extension. The table is created on open if it does not exist, and each
// upload replaces a file's rows inside one transaction.
package pgvector
