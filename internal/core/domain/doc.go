// Package domain contains the core business types for regsync.
//
// This package has no dependencies on other packages in this project.
// All other packages depend on domain, never the reverse.
package domain
