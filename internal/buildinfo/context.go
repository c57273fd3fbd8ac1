// Package buildinfo carries build-time metadata injected with -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not set at build time.
const UnknownValue = "unknown"

// Set by the linker:
//
//	go build -ldflags "-X github.com/tphakala/partdetect/internal/buildinfo.version=v1.2.0"
var (
	version   string
	buildDate string
)

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string // Git tag
	buildDate string
}

// NewContext creates a Context with explicit values.
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Current returns the metadata linked into this binary.
func Current() *Context {
	return NewContext(version, buildDate)
}

// Version returns the build version string.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// UserAgent is the User-Agent sent to inference modules and the trainer.
func (c *Context) UserAgent() string {
	return "partdetect/" + c.Version()
}

// String formats the metadata for the version command.
func (c *Context) String() string {
	return fmt.Sprintf("partdetect %s (built %s)", c.Version(), c.BuildDate())
}
