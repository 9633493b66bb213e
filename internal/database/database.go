// Package database holds the activation store adapters.
package database

import (
	"fmt"

	"codegate/impl/activation"
	"codegate/internal/config"
)

type Store interface {
	activation.Store
	Close()
}

// Open connects the adapter selected by database.driver.
func Open(conf *config.Config) (Store, error) {
	switch conf.Database.Driver {
	case config.DriverMongo:
		client, err := NewMongoClient(conf)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.DriverMySQL:
		client, err := NewSQLClient(conf)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Database.Driver)
	}
}
