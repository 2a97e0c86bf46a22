package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintrace/internal/scan/models"
)

func TestExtractLocator(t *testing.T) {
	e := New()

	t.Run("decomposes URL with query params", func(t *testing.T) {
		fields := e.Extract("https://example.com/a?b=1", models.TypeLocator)
		require.False(t, fields.HasError())
		assert.Equal(t, "https", fields["protocol"])
		assert.Equal(t, "example.com", fields["host"])
		assert.Equal(t, "/a", fields["path"])
		assert.Equal(t, "b=1", fields["query"])
		params, ok := fields["params"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1", params["b"])
	})

	t.Run("malformed URL keeps raw and captures error", func(t *testing.T) {
		fields := e.Extract("https://", models.TypeLocator)
		assert.True(t, fields.HasError())
		assert.Equal(t, "https://", fields["url"])
	})
}

func TestExtractEmail(t *testing.T) {
	e := New()

	t.Run("mailto with parameters", func(t *testing.T) {
		fields := e.Extract("mailto:ops@example.com?subject=Delayed&cc=qa@example.com", models.TypeContactEmail)
		assert.Equal(t, "ops@example.com", fields["address"])
		assert.Equal(t, "Delayed", fields["subject"])
		assert.Equal(t, "qa@example.com", fields["cc"])
	})

	t.Run("bare address", func(t *testing.T) {
		fields := e.Extract("ops@example.com", models.TypeContactEmail)
		assert.Equal(t, "ops@example.com", fields["address"])
	})
}

func TestExtractTelephone(t *testing.T) {
	e := New()

	t.Run("strips punctuation", func(t *testing.T) {
		fields := e.Extract("tel:(017) 123-456 78", models.TypeTelephone)
		assert.Equal(t, "01712345678", fields["number"])
		assert.NotContains(t, fields, "country_code")
	})

	t.Run("guesses country code from plus prefix", func(t *testing.T) {
		fields := e.Extract("+8801712345678", models.TypeTelephone)
		assert.Equal(t, "+8801712345678", fields["number"])
		assert.Equal(t, "88", fields["country_code"])
	})
}

func TestExtractNetworkCredential(t *testing.T) {
	e := New()

	t.Run("captures all components", func(t *testing.T) {
		fields := e.Extract("WIFI:T:WPA;S:MyNet;P:secret;H:false;", models.TypeNetworkCredential)
		require.False(t, fields.HasError())
		assert.Equal(t, "WPA", fields["security"])
		assert.Equal(t, "MyNet", fields["ssid"])
		assert.Equal(t, "secret", fields["password"])
		assert.Equal(t, false, fields["hidden"])
	})

	t.Run("hidden network", func(t *testing.T) {
		fields := e.Extract("WIFI:T:WPA;S:Hidden;P:x;H:true;", models.TypeNetworkCredential)
		assert.Equal(t, true, fields["hidden"])
	})

	t.Run("missing SSID is an error", func(t *testing.T) {
		fields := e.Extract("WIFI:T:WPA;P:secret;", models.TypeNetworkCredential)
		assert.True(t, fields.HasError())
		assert.Equal(t, "WIFI:T:WPA;P:secret;", fields["raw"])
	})
}

func TestExtractLineOriented(t *testing.T) {
	e := New()

	fields := e.Extract("BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nTEL:+123\r\nEND:VCARD", models.TypeContactCard)
	assert.Equal(t, "Jane Doe", fields["fn"])
	assert.Equal(t, "+123", fields["tel"])
	assert.Equal(t, "3.0", fields["version"])
}

func TestExtractGeoCoordinate(t *testing.T) {
	e := New()

	t.Run("lat lon alt and query", func(t *testing.T) {
		fields := e.Extract("geo:23.8103,90.4125,12.5?z=18", models.TypeGeoCoordinate)
		require.False(t, fields.HasError())
		assert.InDelta(t, 23.8103, fields["latitude"], 1e-9)
		assert.InDelta(t, 90.4125, fields["longitude"], 1e-9)
		assert.InDelta(t, 12.5, fields["altitude"], 1e-9)
		assert.Equal(t, "z=18", fields["query"])
	})

	t.Run("malformed coordinates", func(t *testing.T) {
		fields := e.Extract("geo:north,west", models.TypeGeoCoordinate)
		assert.True(t, fields.HasError())
	})
}

func TestExtractLayered(t *testing.T) {
	e := New()

	fields := e.Extract(`{"layers":[{"data":"a","checksum":"abc"},{"data":"b","dependencies":["a"]},{"data":"c"}]}`, models.TypeLayeredPayload)
	require.False(t, fields.HasError())
	assert.Equal(t, 3, fields["layer_count"])
	layers, ok := fields["layers"].([]any)
	require.True(t, ok)
	require.Len(t, layers, 3)
	first, ok := layers[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", first["checksum"])
}

func TestExtractProductTracking(t *testing.T) {
	e := New()

	payload := `{"type":"product_verification","data":{
		"id":"MED-001","name":"Paracetamol","batch_number":"B-42",
		"manufacturer":"Acme Pharma","expiry_date":"2020-01-01",
		"dosage":"500mg","storage_conditions":"cool, dry"}}`

	t.Run("projects identity fields and derives expiry", func(t *testing.T) {
		restore := timeNow
		timeNow = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
		defer func() { timeNow = restore }()

		fields := e.Extract(payload, models.TypeProductTracking)
		require.False(t, fields.HasError())
		assert.Equal(t, "MED-001", fields["id"])
		assert.Equal(t, "Paracetamol", fields["name"])
		assert.Equal(t, "B-42", fields["batch_number"])
		assert.Equal(t, "Acme Pharma", fields["manufacturer"])
		assert.Equal(t, true, fields["is_expired"])
		days, ok := fields["days_until_expiry"].(int)
		require.True(t, ok)
		assert.Negative(t, days)
	})

	t.Run("future expiry counts days with ceiling", func(t *testing.T) {
		restore := timeNow
		timeNow = func() time.Time { return time.Date(2019, 12, 29, 12, 0, 0, 0, time.UTC) }
		defer func() { timeNow = restore }()

		fields := e.Extract(payload, models.TypeProductTracking)
		assert.Equal(t, false, fields["is_expired"])
		// 2.5 days out rounds up to 3.
		assert.Equal(t, 3, fields["days_until_expiry"])
	})

	t.Run("wrong discriminator is an error", func(t *testing.T) {
		fields := e.Extract(`{"type":"something_else","data":{}}`, models.TypeProductTracking)
		assert.True(t, fields.HasError())
	})
}

func TestExtractDefaults(t *testing.T) {
	e := New()

	t.Run("generic text", func(t *testing.T) {
		fields := e.Extract("hello", models.TypeGenericText)
		assert.Equal(t, models.FieldMap{"text": "hello"}, fields)
	})

	t.Run("markup falls back to text", func(t *testing.T) {
		fields := e.Extract("<p>hi</p>", models.TypeMarkup)
		assert.Equal(t, "<p>hi</p>", fields["text"])
	})
}

func TestExtract_PanicCaptured(t *testing.T) {
	e := New()
	e.Register(models.ContentType("exploding"), func(string) models.FieldMap {
		panic("boom")
	})

	fields := e.Extract("x", models.ContentType("exploding"))
	assert.True(t, fields.HasError())
	assert.Equal(t, "x", fields["raw"])
}
