package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCSV_UTF8ConBOMYComa(t *testing.T) {
	data := "\xEF\xBB\xBFname,domain,ruc\nAcme, acme.pe ,20123456789\n,,\nGlobex,,\n"

	rows, err := ReadCSV(strings.NewReader(data), 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"name": "Acme", "domain": "acme.pe", "ruc": "20123456789"}, rows[0])
	assert.Empty(t, rows[1])
	assert.Equal(t, map[string]any{"name": "Globex"}, rows[2], "las celdas vacías no generan clave")
}

func TestReadCSV_LineasVaciasConservanElIndice(t *testing.T) {
	data := "name;ruc\nAcme;1\n\n\n\"Glo\nbex\";2\n\nInitech;3\n\n\n"

	rows, err := ReadCSV(strings.NewReader(data), 0)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Acme", rows[0]["name"])
	assert.Empty(t, rows[1])
	assert.Empty(t, rows[2])
	assert.Equal(t, "Glo\nbex", rows[3]["name"])
	assert.Empty(t, rows[4], "el salto dentro de comillas no cuenta como línea vacía")
	assert.Equal(t, "Initech", rows[5]["name"])
}

func TestReadCSV_Windows1252YPuntoYComa(t *testing.T) {
	enc, err := charmap.Windows1252.NewEncoder().String("firstName;lastName;email\nJosé;Muñoz;jose@acme.pe\n")
	require.NoError(t, err)

	rows, err := ReadCSV(bytes.NewReader([]byte(enc)), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "José", rows[0]["firstName"])
	assert.Equal(t, "Muñoz", rows[0]["lastName"])
}

func TestReadCSV_Limites(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name\n"), 0)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ReadCSV(strings.NewReader("name\nA\nB\nC\n"), 2)
	assert.ErrorContains(t, err, "máximo de 2 filas")

	_, err = ReadCSV(strings.NewReader("name,name\nA,B\n"), 0)
	assert.ErrorContains(t, err, "columna repetida")
}
