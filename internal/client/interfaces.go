package client

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run executes one client command (or the long-running agent mode) and
	// blocks until it finishes.
	Run(args []string) error
}
