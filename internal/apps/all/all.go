// Package all links every app module into the binary. Importing an app runs
// its init functions, which register its routes and models.
package all

import (
	_ "api-boilerplate/internal/apps/files"
	_ "api-boilerplate/internal/apps/health"
	_ "api-boilerplate/internal/apps/users"
)
