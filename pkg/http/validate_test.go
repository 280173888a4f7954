package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
	Symbol string `json:"symbol" validate:"required,max=8,alphanum"`
}

func bindJSON(t *testing.T, target, body string, req any) any {
	t.Helper()
	e := echo.New()
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return ReadAndValidateRequest(e.NewContext(r, httptest.NewRecorder()), req)
}

func TestReadAndValidateRequest_AppliesDefaults(t *testing.T) {
	req := &sampleRequest{}
	assert.Nil(t, bindJSON(t, "/", `{"symbol":"BTC"}`, req))
	assert.Equal(t, 20, req.Limit)
	assert.Equal(t, "BTC", req.Symbol)
}

func TestReadAndValidateRequest_ReportsJSONFieldNames(t *testing.T) {
	res := bindJSON(t, "/", `{"limit": 500, "symbol": "BTC-USD"}`, &sampleRequest{})
	errs, ok := res.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, map[string]any{"max": "100"}, errs[0].Params)

	assert.Equal(t, "symbol", errs[1].Field)
	assert.Equal(t, "ERR_ALPHANUM", errs[1].Code)
	assert.Equal(t, "symbol must contain only letters and digits", errs[1].Message)
}

func TestReadAndValidateRequest_Malformed(t *testing.T) {
	errs, ok := bindJSON(t, "/", `{"symbol":`, &sampleRequest{}).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MALFORMED", errs[0].Code)
}
