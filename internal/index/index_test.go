package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschubert/warcreplay/internal/index"
)

func TestLookupIsExact(t *testing.T) {
	t.Parallel()

	builder := index.NewBuilder()
	builder.Put(index.StoredResponse{URI: "http://a.test/x?b=2&a=1", StatusCode: 200})
	idx := builder.Build()

	_, ok := idx.Lookup("http://a.test/x?b=2&a=1")
	require.True(t, ok)

	for _, uri := range []string{
		"http://a.test/x?a=1&b=2",
		"https://a.test/x?b=2&a=1",
		"http://A.test/x?b=2&a=1",
		"http://a.test/x/?b=2&a=1",
		"http://a.test/x",
	} {
		t.Run(uri, func(t *testing.T) {
			t.Parallel()

			_, ok := idx.Lookup(uri)
			assert.False(t, ok)
		})
	}
}

func TestLaterPutReplacesEarlier(t *testing.T) {
	t.Parallel()

	builder := index.NewBuilder()
	assert.False(t, builder.Put(index.StoredResponse{URI: "http://a.test/", Body: []byte("B1")}))
	assert.True(t, builder.Put(index.StoredResponse{URI: "http://a.test/", Body: []byte("B2")}))
	idx := builder.Build()

	resp, ok := idx.Lookup("http://a.test/")
	require.True(t, ok)
	assert.Equal(t, []byte("B2"), resp.Body)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, int64(2), idx.TotalBodySize())
}

func TestURIsAreSorted(t *testing.T) {
	t.Parallel()

	builder := index.NewBuilder()
	for _, uri := range []string{"http://c.test/", "http://a.test/", "http://b.test/"} {
		builder.Put(index.StoredResponse{URI: uri})
	}

	require.Equal(
		t,
		[]string{"http://a.test/", "http://b.test/", "http://c.test/"},
		builder.Build().URIs(),
	)
}

func TestNilIndexIsEmpty(t *testing.T) {
	t.Parallel()

	var idx *index.Index

	_, ok := idx.Lookup("http://a.test/")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.URIs())
}

func TestHeaderValuesIgnoresCase(t *testing.T) {
	t.Parallel()

	resp := index.StoredResponse{Headers: []index.Header{
		{"Set-Cookie", "a=1"},
		{"Content-Type", "text/html"},
		{"set-cookie", "b=2"},
	}}

	require.Equal(t, []string{"a=1", "b=2"}, resp.HeaderValues("SET-COOKIE"))
	require.Nil(t, resp.HeaderValues("Location"))
}
