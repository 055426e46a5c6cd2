package mealtypes

// Service defines the interface all mealmind services implement for
// registration and lifecycle management.
type Service interface {
	// Name returns the unique service name used for registry lookup.
	Name() string

	// Initialize prepares the service for use.
	Initialize() error
}

// TestModeProvider lets components ask whether the application is running in
// deterministic test mode (fixed ids and timestamps).
type TestModeProvider interface {
	IsTestMode() bool
}
