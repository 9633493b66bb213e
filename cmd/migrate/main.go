// migrate applies or rolls back the embedded MySQL schema.
package main

import (
	"flag"
	"fmt"
	"os"

	"codegate/internal/config"
	"codegate/internal/database"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	if conf.Database.Driver != config.DriverMySQL {
		fmt.Fprintf(os.Stderr, "migrations apply to the %s driver only, configured: %s\n", config.DriverMySQL, conf.Database.Driver)
		os.Exit(1)
	}

	if err := database.Migrate(database.MySQLDSN(conf), *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations %s applied\n", *direction)
}
