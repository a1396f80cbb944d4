package google

import (
	"fmt"
	"strconv"
	"strings"

	ports "capigastos/internal/sheets"
)

// cellString renders an unformatted cell value. Numbers keep their full
// precision with a dot separator, which is what the normalizer expects.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toRows(values [][]any) []ports.Row {
	rows := make([]ports.Row, len(values))
	for i, vals := range values {
		row := make(ports.Row, len(vals))
		for j, v := range vals {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows
}

// quoteSheet quotes a tab title for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter returns the A1 column name of the 1-based column n.
func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// tableRange covers every column of a table with the given width.
func tableRange(name string, width int) string {
	return quoteSheet(name) + "!A:" + columnLetter(width)
}
