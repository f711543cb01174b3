// Package process stops the browser started for PDF export together with
// the child processes it spawned.
package process
