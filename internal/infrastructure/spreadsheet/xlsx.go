// Package spreadsheet convierte hojas de cálculo en filas de importación.
package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoRows el archivo no tiene filas de datos bajo la cabecera.
var ErrNoRows = errors.New("la hoja no tiene filas de datos")

// ReadRows lee la primera hoja de un .xlsx: la primera fila no vacía es la cabecera y
// cada fila siguiente se convierte en un mapa columna -> texto, de modo que el índice i
// corresponde a la fila i+1 bajo la cabecera. Una fila en blanco intermedia da un mapa
// vacío; las del final se descartan. Las celdas vacías no generan clave. maxRows <= 0
// no limita.
func ReadRows(r io.Reader, maxRows int) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("abrir xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("leer hoja %q: %w", sheets[0], err)
	}
	defer func() { _ = rows.Close() }()

	b := &rowBuilder{maxRows: maxRows}
	line := 0
	for rows.Next() {
		line++
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("fila %d: %w", line, err)
		}
		if err := b.add(cols); err != nil {
			return nil, err
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("leer hoja: %w", err)
	}
	return b.result()
}

// rowBuilder arma los mapas de importación a partir de filas de texto.
type rowBuilder struct {
	maxRows int
	header  []string
	blanks  int // filas en blanco tras la cabecera aún sin volcar
	out     []map[string]any
}

func (b *rowBuilder) add(cols []string) error {
	if blank(cols) {
		if b.header != nil {
			b.blanks++
		}
		return nil
	}
	if b.header == nil {
		header, err := parseHeader(cols)
		if err != nil {
			return err
		}
		b.header = header
		return nil
	}
	for ; b.blanks > 0; b.blanks-- {
		if err := b.push(map[string]any{}); err != nil {
			return err
		}
	}
	item := make(map[string]any, len(b.header))
	for i, v := range cols {
		if i >= len(b.header) || b.header[i] == "" {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			item[b.header[i]] = v
		}
	}
	return b.push(item)
}

func (b *rowBuilder) push(item map[string]any) error {
	if b.maxRows > 0 && len(b.out) == b.maxRows {
		return fmt.Errorf("la hoja supera el máximo de %d filas", b.maxRows)
	}
	b.out = append(b.out, item)
	return nil
}

func (b *rowBuilder) result() ([]map[string]any, error) {
	if len(b.out) == 0 {
		return nil, ErrNoRows
	}
	return b.out, nil
}

func parseHeader(cols []string) ([]string, error) {
	header := make([]string, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if seen[c] {
			return nil, fmt.Errorf("columna repetida en la cabecera: %s", c)
		}
		seen[c] = true
		header[i] = c
	}
	return header, nil
}

func blank(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
