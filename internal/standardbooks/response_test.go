package standardbooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseUnwrapsDataEnvelope(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data><IVVc SerNr="2024001" CustCode="1042"/></data>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)

	node := resp.Payload.Child("IVVc")
	require.NotNil(t, node)
	assert.Equal(t, "2024001", node.Field("SerNr"))
	assert.Equal(t, "1042", node.Field("CustCode"))
}

func TestParseResponseWrapsBareStandaloneDocument(t *testing.T) {
	// Several top-level elements after the declaration: not well-formed XML,
	// but exactly what the endpoint emits for some registers.
	raw := []byte(`<?xml version="1.0" encoding="UTF-8" standalone='yes'?>` +
		`<INVc Code="ART-1" VATCode="1"/><INVc Code="ART-2" VATCode="2"/>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)

	articles := resp.Payload.ChildAll("INVc")
	require.Len(t, articles, 2)
	assert.Equal(t, "ART-1", articles[0].Field("Code"))
	assert.Equal(t, "ART-2", articles[1].Field("Code"))
}

func TestParseResponseRejectsMalformedWithoutStandaloneDecl(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><a/><b/>`)

	_, err := ParseResponse(raw)
	assert.Error(t, err)
}

func TestParseResponseRejectsTrailingElementAfterData(t *testing.T) {
	// A stray element after the data envelope must not be silently dropped.
	raw := []byte(`<?xml version="1.0"?><data><IVVc SerNr="7"/></data><extra/>`)

	_, err := ParseResponse(raw)
	assert.Error(t, err)
}

func TestParseResponseRejectsTrailingText(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data/>stray text`)

	_, err := ParseResponse(raw)
	assert.Error(t, err)
}

func TestParseResponseAllowsTrailingWhitespace(t *testing.T) {
	raw := []byte("<?xml version=\"1.0\"?><data><CUVc Code=\"1042\"/></data>\n\n")

	resp, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.NotNil(t, resp.Payload.Child("CUVc"))
}

func TestParseResponseErrorNode(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data>` +
		`<error code="20127" description="Invalid customer code"/>` +
		`</data>`)

	_, err := ParseResponse(raw)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 20127, apiErr.Code)
	assert.Equal(t, "Invalid customer code", apiErr.Description)
}

func TestParseResponseFirstErrorWins(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data>` +
		`<error code="1" description="first"/>` +
		`<error code="2" description="second"/>` +
		`</data>`)

	_, err := ParseResponse(raw)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, apiErr.Code)
	assert.Equal(t, "first", apiErr.Description)
}

func TestParseResponseErrorNodeElementStyle(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data><error>` +
		`<code>404</code><description>Record not found</description>` +
		`</error></data>`)

	_, err := ParseResponse(raw)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
	assert.Equal(t, "Record not found", apiErr.Description)
}

func TestParseResponseCollectsMessages(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data>` +
		`<message description="Stock level adjusted"/>` +
		`<message description="Row 2 rounded"/>` +
		`<IVVc SerNr="7"/>` +
		`</data>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Stock level adjusted", "Row 2 rounded"}, resp.Messages)
	assert.NotNil(t, resp.Payload.Child("IVVc"))
}

func TestParseResponseWithoutDataEnvelopeKeepsRoot(t *testing.T) {
	raw := []byte(`<?xml version="1.0" standalone='yes'?><CUVc Code="1042"/>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)
	require.NotNil(t, resp.Payload.Child("CUVc"))
}

func TestFieldPrefersAttributeOverChild(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data>` +
		`<CUVc Code="attr-code"><Code>child-code</Code><Name> Acme OÜ </Name></CUVc>` +
		`</data>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)

	node := resp.Payload.Child("CUVc")
	require.NotNil(t, node)
	assert.Equal(t, "attr-code", node.Field("Code"))
	assert.Equal(t, "Acme OÜ", node.Field("Name"))
	assert.Empty(t, node.Field("Missing"))
}

func TestParseResponseCDATASurvives(t *testing.T) {
	raw := []byte(`<?xml version="1.0"?><data>` +
		`<INVc Code="ART-1"><Math2><![CDATA[Back in stock <soon> & more]]></Math2></INVc>` +
		`</data>`)

	resp, err := ParseResponse(raw)
	require.NoError(t, err)

	node := resp.Payload.Child("INVc")
	require.NotNil(t, node)
	assert.Equal(t, "Back in stock <soon> & more", node.Field("Math2"))
}
