package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV lee un CSV con la misma convención que ReadRows. Acepta UTF-8 (con o sin BOM) y
// Windows-1252, que es lo que exporta Excel en español; el separador puede ser coma o
// punto y coma.
func ReadCSV(r io.Reader, maxRows int) ([]map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer csv: %w", err)
	}
	data, err := toUTF8(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffComma(data)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	b := &rowBuilder{maxRows: maxRows}
	lastLine := 0
	for {
		cols, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer csv: %w", err)
		}
		// encoding/csv salta las líneas vacías; se reponen para no desplazar índices
		line, _ := cr.FieldPos(0)
		for ; lastLine+1 < line; lastLine++ {
			if err := b.add(nil); err != nil {
				return nil, err
			}
		}
		lastField, _ := cr.FieldPos(len(cols) - 1)
		lastLine = lastField + strings.Count(cols[len(cols)-1], "\n")
		if err := b.add(cols); err != nil {
			return nil, err
		}
	}
	return b.result()
}

func toUTF8(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
		return out, err
	}
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decodificar csv: %w", err)
	}
	return out, nil
}

// sniffComma mira solo la primera línea.
func sniffComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
