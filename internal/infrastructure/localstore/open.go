package localstore

import (
	"fmt"
	"strings"

	"github.com/fastygo/agroflow/usecase"
)

// Open selects the driver by name. An empty driver means bolt.
func Open(driver, path string) (usecase.LocalStore, error) {
	switch strings.ToLower(driver) {
	case "", DriverBolt:
		s, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("localstore: unknown driver %q", driver)
	}
}

var (
	_ usecase.LocalStore = (*BoltStore)(nil)
	_ usecase.LocalStore = (*SQLiteStore)(nil)
)
