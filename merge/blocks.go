package merge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/llmerge/core"
)

// RenderBlock renders one "<index>: <key text>" line per row of ds, in row
// order, joined by newlines. Missing key values render as empty text.
// Line breaks inside key text are flattened so every row stays on one line.
func RenderBlock(ds *core.Dataset, key core.Field) (string, error) {
	col, ok := ds.FieldIndex(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownField, key)
	}

	var sb strings.Builder
	for i, row := range ds.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strconv.Itoa(row.Index))
		sb.WriteString(": ")
		sb.WriteString(KeyText(row.Values[col]))
	}
	return sb.String(), nil
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// KeyText converts a cell value to the text shown to the matcher.
func KeyText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return lineBreaks.Replace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return lineBreaks.Replace(fmt.Sprint(x))
	}
}
