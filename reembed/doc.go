// Package reembed rewrites the vectors of an existing local index with the
// current embedding model, one file at a time.
//
// Files are replaced atomically: when any chunk of a file cannot be
// embedded, the file keeps its previous vectors so a single index never
// mixes the output of two models within one document.
package reembed
