package audit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"siteprobe/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vocabulary = `{"@graph":[
  {"@id":"schema:Recipe","@type":"rdfs:Class"},
  {"@id":"https://schema.org/Movie","@type":["rdfs:Class"]},
  {"@id":"schema:name","@type":"rdf:Property"},
  {"@id":"other:Thing","@type":"rdfs:Class"}
]}`

func TestSchemaLoader_DownloadsAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, vocabulary)
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "types.json")
	l := NewSchemaLoader(srv.Client(), cache, false, logger.NewNop())
	l.source = srv.URL

	types := l.Types(context.Background())
	assert.Equal(t, SchemaTypes{"Recipe": true, "Movie": true}, types)

	data, err := os.ReadFile(cache)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Recipe":true,"Movie":true}`, string(data))
}

func TestSchemaLoader_FallbackOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	l := NewSchemaLoader(srv.Client(), "", false, logger.NewNop())
	l.source = srv.URL
	assert.Equal(t, FallbackSchemaTypes(), l.Types(context.Background()))
}

func TestSchemaLoader_CancelledCallerDoesNotPinFallback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, vocabulary)
	}))
	defer srv.Close()

	l := NewSchemaLoader(srv.Client(), "", false, logger.NewNop())
	l.source = srv.URL

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, FallbackSchemaTypes(), l.Types(cancelled))

	types := l.Types(context.Background())
	assert.True(t, types["Recipe"])
	assert.False(t, types["Product"])

	// успешная загрузка запоминается
	l.Types(context.Background())
	assert.Equal(t, int32(1), hits.Load())
}

func TestSchemaLoader_ServerFailureIsRemembered(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := NewSchemaLoader(srv.Client(), "", false, logger.NewNop())
	l.source = srv.URL
	l.Types(context.Background())
	l.Types(context.Background())
	assert.Equal(t, int32(1), hits.Load())
}
