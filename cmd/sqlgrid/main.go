// filepath: cmd/sqlgrid/main.go
package main

import (
	"sqlgrid/internal/cli"

	// Import docs for Swagger
	_ "sqlgrid/docs"
)

// @title sqlgrid
// @version 1.0.0
// @description Editable SQL-backed data grids served over HTTP.
// @BasePath /
// @schemes http
// @securityDefinitions.basic BasicAuth

func main() {
	// Delegate all execution to the CLI package
	cli.Execute()
}
