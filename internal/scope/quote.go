package scope

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sanitize errors.
var (
	ErrBindCount        = errors.New("wrong number of bind variables")
	ErrUnsupportedValue = errors.New("unsupported bind value")
)

const timeLayout = "2006-01-02 15:04:05"

// Sanitize replaces each ? placeholder in clause with the quoted literal of
// the matching argument. Placeholders inside single-quoted string literals are
// left alone.
func Sanitize(clause string, args ...any) (string, error) {
	if n := countPlaceholders(clause); n != len(args) {
		return "", fmt.Errorf("%w (%d for %d) in: %s", ErrBindCount, len(args), n, clause)
	}
	if len(args) == 0 {
		return clause, nil
	}

	var b strings.Builder
	next := 0
	inString := false
	for _, r := range clause {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString:
			lit, err := Quote(args[next])
			if err != nil {
				return "", fmt.Errorf("bind variable %d: %w", next+1, err)
			}
			b.WriteString(lit)
			next++
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// Quote renders v as a SQL literal.
func Quote(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quoteString(val), nil
	case []byte:
		return quoteString(string(val)), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return quoteFloat(float64(val), 32)
	case float64:
		return quoteFloat(val, 64)
	case decimal.Decimal:
		return val.String(), nil
	case time.Time:
		return quoteString(val.UTC().Format(timeLayout)), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return "NULL", nil
		}
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			lit, err := Quote(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			parts[i] = lit
		}
		return strings.Join(parts, ","), nil
	}

	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteFloat keeps a decimal point on integral values so 1.0 stays 1.0.
func quoteFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func countPlaceholders(clause string) int {
	n := 0
	inString := false
	for _, r := range clause {
		switch {
		case r == '\'':
			inString = !inString
		case r == '?' && !inString:
			n++
		}
	}
	return n
}
