// ABOUTME: Product and version identification
// ABOUTME: Reported in server/hello and the mDNS TXT record
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "Bar Osc"

	// Manufacturer identifies who built it
	Manufacturer = "barosc"
)
