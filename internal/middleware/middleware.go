package middleware

// contextKey is a private type for context keys defined in this package to
// avoid collisions with keys from other packages.
type contextKey string
