package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver registered by this package.
const DriverName = "sqlite3_filterchain"

var (
	registerOnce sync.Once
	patternCache sync.Map // pattern string -> *regexp.Regexp
)

// RegisterDriver registers DriverName with database/sql. Safe to call more
// than once.
func RegisterDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", regexpMatch, true)
			},
		})
	})
}

// regexpMatch implements "value REGEXP pattern". NULL never matches.
func regexpMatch(pattern string, value any) (bool, error) {
	var s string
	switch v := value.(type) {
	case nil:
		return false, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid REGEXP pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}
