// ABOUTME: Version information for the tone generator
// ABOUTME: Reported in logs and the render tool's output
package version

const (
	// Version is the software version
	Version = "0.1.0"

	// Product is the product name
	Product = "tonegen"

	// Manufacturer identifies who built it
	Manufacturer = "Resonate"
)
