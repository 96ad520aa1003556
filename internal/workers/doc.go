// Package workers contains server-side background jobs that run for the
// lifetime of the server process.
package workers
