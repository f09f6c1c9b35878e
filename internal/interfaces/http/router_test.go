package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/crm-api/internal/application/importer"
	"github.com/jhoicas/crm-api/internal/application/listing"
	"github.com/jhoicas/crm-api/internal/application/records"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/infrastructure/memstore"
	apphttp "github.com/jhoicas/crm-api/internal/interfaces/http"
)

func buildAPI(t *testing.T, opts apphttp.ImportOptions) (*fiber.App, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Importer: importer.NewEngine(store, store, nil, nil, importer.Config{}),
		ListUC: listing.NewListUseCase(listing.Repositories{
			Contacts:  store.Contacts(),
			Companies: store.Companies(),
			Deals:     store.Deals(),
			Tasks:     store.Tasks(),
		}),
		RecordsUC: records.NewRecordsUseCase(store, store, nil),
		JWTSecret: testJWTSecret,
		Import:    opts,
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// ──────────────────────────────────────────────────────────────────────────────
// Importación
// ──────────────────────────────────────────────────────────────────────────────

func TestImportJSON_ResumenPorFila(t *testing.T) {
	app, store := buildAPI(t, apphttp.ImportOptions{})
	auth := tokenFor(t, 5, "user")

	resp, body := doJSON(t, app, http.MethodPost, "/api/import/contacts", auth, map[string]any{
		"items": []map[string]any{
			{"firstName": "Ana", "lastName": "Quispe", "email": "ana@acme.pe", "dni": 12345678},
			{"firstName": "Ana", "lastName": "Quispe", "email": "ANA@acme.pe"},
			{"firstName": "Luis"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["successCount"])
	assert.EqualValues(t, 2, body["errorCount"])

	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "12345678", first["data"].(map[string]any)["dni"], "el número llega como texto exacto")

	contacts, total, err := store.Contacts().List(context.Background(),
		listing.ComposeQuery("admin", 1, listing.ListParams{}, mustDescriptor(t, entity.KindContact)))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, int64(5), *contacts[0].OwnerID, "el propietario es quien importa")
}

func TestImportJSON_ErroresDePeticion(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{})
	auth := tokenForRole(t, "manager")

	resp, body := doJSON(t, app, http.MethodPost, "/api/import/contacts", auth, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])

	resp, body = doJSON(t, app, http.MethodPost, "/api/import/invoices", auth, map[string]any{"items": []any{map[string]any{"x": 1}}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_ENTITY", body["code"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/import/contacts", auth, map[string]any{
		"items": []any{map[string]any{"firstName": "A"}}, "batchSize": 999999,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/import/contacts", "", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImport_LimitePorUsuario(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{RateLimitPerMinute: 1})
	payload := map[string]any{"items": []any{map[string]any{"name": "Acme"}}}

	resp, _ := doJSON(t, app, http.MethodPost, "/api/import/companies", tokenFor(t, 1, "user"), payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/api/import/companies", tokenFor(t, 1, "user"), payload)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/import/companies", tokenFor(t, 2, "user"), payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "el límite es por usuario")
}

func TestImportXLSX(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{MaxRows: 100})

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"name", "domain", "ruc"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Acme", "acme.pe", "20123456789"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Globex", "ACME.pe"}))
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)

	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	part, err := w.CreateFormFile("file", "empresas.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, w.WriteField("batchSize", "1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/companies/xlsx", &form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SuccessCount int `json:"successCount"`
		Results      []struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.SuccessCount)
	require.Len(t, body.Results, 3, "la fila 3 en blanco ocupa su posición")
	assert.False(t, body.Results[1].Success)
	assert.Contains(t, body.Results[1].Error, "name")
	assert.Contains(t, body.Results[2].Error, "domain")
}

func TestImportCSV(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{})

	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	part, err := w.CreateFormFile("file", "contactos.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("firstName;lastName;email\nAna;Quispe;ana@acme.pe\nLuis;Rojas;luis@acme.pe\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/contacts/csv", &form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", tokenForRole(t, "user"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SuccessCount int `json:"successCount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.SuccessCount)
}

func TestImportXLSX_SinArchivo(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{})
	req := httptest.NewRequest(http.MethodPost, "/api/import/companies/xlsx", strings.NewReader(""))
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Listados y registros
// ──────────────────────────────────────────────────────────────────────────────

func seedContact(t *testing.T, store *memstore.Store, owner int64, email string) *entity.Contact {
	t.Helper()
	c := &entity.Contact{FirstName: "Ana", LastName: "Quispe", Email: email, OwnerID: &owner, LifecycleStage: "lead"}
	require.NoError(t, store.Contacts().Create(context.Background(), c))
	return c
}

func mustDescriptor(t *testing.T, kind entity.Kind) listing.Descriptor {
	t.Helper()
	d, err := listing.DescriptorFor(kind)
	require.NoError(t, err)
	return d
}

func TestList_VisibilidadYFiltros(t *testing.T) {
	app, store := buildAPI(t, apphttp.ImportOptions{})
	seedContact(t, store, 5, "a@acme.pe")
	seedContact(t, store, 6, "b@acme.pe")

	resp, body := doJSON(t, app, http.MethodGet, "/api/contacts?lifecycleStage=lead&owners=6", tokenFor(t, 5, "user"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"], "owners se ignora para user")

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?owners=6", tokenFor(t, 1, "jefe_comercial"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["total"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?dni=1", tokenFor(t, 1, "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])

	resp, _ = doJSON(t, app, http.MethodGet, "/api/contacts?owners=x", tokenFor(t, 1, "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/invoices", tokenFor(t, 1, "admin"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestList_LimiteExplicitoSeAcota(t *testing.T) {
	app, store := buildAPI(t, apphttp.ImportOptions{})
	seedContact(t, store, 5, "a@acme.pe")
	seedContact(t, store, 5, "b@acme.pe")
	admin := tokenFor(t, 1, "admin")

	resp, body := doJSON(t, app, http.MethodGet, "/api/contacts?limit=0", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["limit"])
	assert.EqualValues(t, 2, body["totalPages"])
	assert.Len(t, body["items"], 1)

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?limit=-7", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["limit"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?limit=5000", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, listing.MaxLimit, body["limit"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, listing.DefaultLimit, body["limit"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?limit=diez", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])

	resp, body = doJSON(t, app, http.MethodGet, "/api/contacts?page=9223372036854775807", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["items"])
}

func TestRecords_ObtenerEditarBorrar(t *testing.T) {
	app, store := buildAPI(t, apphttp.ImportOptions{})
	c := seedContact(t, store, 5, "a@acme.pe")
	path := "/api/contacts/" + itoa(c.ID)

	resp, _ := doJSON(t, app, http.MethodGet, path, tokenFor(t, 6, "manager"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "un registro ajeno no se revela")

	resp, body := doJSON(t, app, http.MethodGet, path, tokenFor(t, 5, "user"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@acme.pe", body["email"])

	resp, body = doJSON(t, app, http.MethodPut, path, tokenFor(t, 9, "jefe_comercial"), map[string]any{"position": "CTO"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	resp, body = doJSON(t, app, http.MethodPut, path, tokenFor(t, 5, "user"), map[string]any{"position": "CTO"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CTO", body["position"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/contacts/abc", tokenFor(t, 5, "user"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, path, tokenFor(t, 5, "user"), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRecords_ConflictoDevuelve409(t *testing.T) {
	app, store := buildAPI(t, apphttp.ImportOptions{})
	c := seedContact(t, store, 5, "a@acme.pe")
	seedContact(t, store, 5, "b@acme.pe")

	resp, body := doJSON(t, app, http.MethodPut, "/api/contacts/"+itoa(c.ID), tokenFor(t, 5, "user"), map[string]any{"email": "B@acme.pe"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", body["code"])
}

func TestMetrics_SoloAdmin(t *testing.T) {
	app, _ := buildAPI(t, apphttp.ImportOptions{})

	resp := doGet(t, app, "/metrics", tokenForRole(t, "jefe_comercial"))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doGet(t, app, "/metrics", tokenForRole(t, "superadmin"))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doGet(t, app, "/metrics", tokenForRole(t, "admin"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
