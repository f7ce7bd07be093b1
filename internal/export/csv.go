// Package export turns the displayed rows of a view into CSV text and
// multi-sheet XLSX workbooks.
package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/oakwood-commons/jtv/internal/tree"
)

// DefaultLineTerminator ends every CSV row, the header included.
const DefaultLineTerminator = "\n"

// CSV serializes rows as delimited text. Nested values are inlined as
// compact JSON rather than flattened.
type CSV struct {
	// LineTerminator defaults to DefaultLineTerminator.
	LineTerminator string
}

func (c CSV) terminator() string {
	if c.LineTerminator == "" {
		return DefaultLineTerminator
	}
	return c.LineTerminator
}

// Write emits the header row and one line per row, in order.
func (c CSV) Write(w io.Writer, headers []string, rows []tree.Value) error {
	bw := bufio.NewWriter(w)
	term := c.terminator()
	writeLine := func(fields []string) error {
		for i, f := range fields {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(Quote(f)); err != nil {
				return err
			}
		}
		_, err := bw.WriteString(term)
		return err
	}

	if err := writeLine(headers); err != nil {
		return err
	}
	fields := make([]string, len(headers))
	for _, row := range rows {
		for i, h := range headers {
			fields[i] = FieldText(row, h)
		}
		if err := writeLine(fields); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Format is Write into a string.
func (c CSV) Format(headers []string, rows []tree.Value) string {
	var b strings.Builder
	_ = c.Write(&b, headers, rows)
	return b.String()
}

// FieldText is the unquoted text of column in row: empty for missing or
// null fields, compact JSON for nested values.
func FieldText(row tree.Value, column string) string {
	v, ok := row.Get(column)
	if !ok {
		return ""
	}
	return v.Text()
}

// Quote wraps s in double quotes, doubling embedded ones, when it contains a
// comma, a double quote, a line feed or a carriage return. Other text is
// returned as is.
func Quote(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
