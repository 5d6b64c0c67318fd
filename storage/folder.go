package storage

import (
	"fmt"
	"os"
	"strings"
)

// Backend names a key-value engine a node database can be stored in.
type Backend string

const (
	BackendPebble Backend = "pebble"
	BackendBadger Backend = "badger"
	// BackendNone is reported for a missing or empty data directory.
	BackendNone Backend = ""
)

// ParseBackend parses a backend name as accepted on the command line.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(s)) {
	case BackendPebble:
		return BackendPebble, nil
	case BackendBadger:
		return BackendBadger, nil
	}
	return BackendNone, fmt.Errorf("unknown storage backend %q", s)
}

// DetectBackend inspects the files of a data directory and reports which
// backend wrote it. A directory that does not exist is reported as empty, since
// the database module is able to create it.
func DetectBackend(dir string) (Backend, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return BackendNone, nil
	}
	if err != nil {
		return BackendNone, err
	}
	if !info.IsDir() {
		return BackendNone, fmt.Errorf("data path %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return BackendNone, err
	}
	if len(entries) == 0 {
		return BackendNone, nil
	}

	var (
		pebbleManifest bool
		badgerManifest bool
		keyRegistry    bool
		current        bool
		wal            bool
		vlog           bool
	)
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasPrefix(name, "MANIFEST-"):
			pebbleManifest = true
		case name == "MANIFEST":
			badgerManifest = true
		case name == "CURRENT":
			current = true
		case name == "KEYREGISTRY":
			keyRegistry = true
		case strings.HasSuffix(name, ".log"):
			wal = true
		case strings.HasSuffix(name, ".vlog"):
			vlog = true
		}
	}

	switch {
	case pebbleManifest && current && wal:
		return BackendPebble, nil
	case badgerManifest && keyRegistry && vlog:
		return BackendBadger, nil
	}
	return BackendNone, fmt.Errorf("data directory %s is neither a pebble nor a badger database", dir)
}
