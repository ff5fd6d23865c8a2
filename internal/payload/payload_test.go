package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateKeysInOrder(t *testing.T) {
	obj, err := Decode([]byte(`{"inline_data":{"mime_type":"image/jpeg","data":"QUJD"}}`))
	require.NoError(t, err)

	inline := obj.Object("inlineData", "inline_data")
	require.NotNil(t, inline)
	assert.Equal(t, "image/jpeg", inline.String("image/png", "mimeType", "mime_type"))
	assert.Equal(t, "QUJD", inline.String("", "data"))
}

func TestStringFallsBackToDefault(t *testing.T) {
	obj, err := Decode([]byte(`{"name":"Black","color_code":""}`))
	require.NoError(t, err)

	assert.Equal(t, "#ffffff", obj.String("#ffffff", "color_code", "colorCode"))
	assert.Equal(t, "Black", obj.String("", "name"))
}

func TestIntAcceptsNumbersAndStrings(t *testing.T) {
	obj, err := Decode([]byte(`{"id":4012,"product_id":"71","code":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, int64(4012), obj.Int(0, "id"))
	assert.Equal(t, int64(71), obj.Int(0, "product_id"))
	assert.Equal(t, int64(-1), obj.Int(-1, "code", "missing"))
}

func TestObjectsSkipsNonObjects(t *testing.T) {
	obj, err := Decode([]byte(`{"extra":[{"url":"B"},"junk",null,{"url":"C"}]}`))
	require.NoError(t, err)

	items := obj.Objects("extra")
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].String("", "url"))
	assert.Equal(t, "C", items[1].String("", "url"))
}

func TestLookupIgnoresNull(t *testing.T) {
	obj, err := Decode([]byte(`{"result":null,"data":{"ok":true}}`))
	require.NoError(t, err)

	v, ok := obj.Lookup("result", "data")
	require.True(t, ok)
	assert.IsType(t, map[string]any{}, v)
}

func TestDecodeRejectsNonObject(t *testing.T) {
	_, err := Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}
