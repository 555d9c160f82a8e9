// Package retry runs operations against unreliable collaborators with a
// bounded number of attempts and jittered exponential backoff.
//
// The wait after the n-th failed attempt is drawn uniformly from
// [MinWait, min(MaxWait, MinWait*2^(n-1))]. Errors tagged with
// core.Permanent end the loop immediately; every other error, including
// untagged ones, is retried until MaxAttempts is reached.
package retry
