// Package videogen provides a submit-and-poll client for the hosted video
// generation API that renders approved ad scripts.
package videogen
