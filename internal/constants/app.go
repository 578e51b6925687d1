package constants

import (
	"time"
)

// Session lifetimes chosen at login
const (
	// RememberMeTTL - session lifetime when "remember me" is checked (7 days)
	RememberMeTTL = 7 * 24 * time.Hour

	// DefaultSessionTTL - session lifetime otherwise (30 minutes)
	DefaultSessionTTL = 30 * time.Minute
)

// Browser defaults
const (
	// RecentFilesLimit - number of entries in the "Recent files" strip
	RecentFilesLimit = 4

	// HomeFolderName - display name of the store root
	HomeFolderName = "Home"

	// DefaultMutationTimeout - upper bound on a single mutation plus its refresh.
	// Keeps the controller from staying in the Mutating phase forever.
	DefaultMutationTimeout = 60 * time.Second

	// DefaultRequestTimeout - per-request timeout applied by the transport
	DefaultRequestTimeout = 30 * time.Second
)

// Event bus sizing
const (
	// EventBusDefaultBuffer - default buffer size for event channels (256)
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size (2048)
	EventBusMaxBuffer = 2048
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (15 seconds)
	HTTPTLSHandshakeTimeout = 15 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (10 seconds)
	HTTPDialTimeout = 10 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)

// Retry policy for idempotent API reads
const (
	APIRetryMax     = 3
	APIRetryWaitMin = 500 * time.Millisecond
	APIRetryWaitMax = 5 * time.Second
)
