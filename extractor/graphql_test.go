package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pricewatch/engine"
	"github.com/use-agent/pricewatch/models"
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// graphqlSite serves a product page at /ar/<slug> (or /product) and a
// GraphQL endpoint at /graphql.
type graphqlSite struct {
	srv      *httptest.Server
	apiCalls atomic.Int32
	lastVars atomic.Value
	headers  atomic.Value
}

func newGraphQLSite(t *testing.T, page, apiResponse string) *graphqlSite {
	t.Helper()
	s := &graphqlSite{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/graphql" {
			s.apiCalls.Add(1)
			s.headers.Store(r.Header.Clone())
			var req graphqlRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				s.lastVars.Store(req.Variables)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, apiResponse)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *graphqlSite) vars() map[string]any {
	v, _ := s.lastVars.Load().(map[string]any)
	return v
}

const rayashopPriceJSON = `{"data":{"product":{"price_range":{"maximum_price":{
	"final_price":{"value":15999.99},"regular_price":{"value":17999}}}}}}`

func TestRayashop_Price(t *testing.T) {
	site := newGraphQLSite(t, `<button><span class="AppButton__text">أضف إلى العربة</span></button>`, rayashopPriceJSON)
	e := NewRayashop(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	got := e.Extract(context.Background(), site.srv.URL+"/ar/samsung-galaxy-a55")
	assertResult(t, price("15999.99"), got)

	assert.Equal(t, int32(1), site.apiCalls.Load())
	assert.Equal(t, "samsung-galaxy-a55", site.vars()["slug"])
	assert.Contains(t, site.vars(), "corporateId")
	h, _ := site.headers.Load().(http.Header)
	assert.Equal(t, "ar", h.Get("storeCode"))
}

func TestRayashop_OutOfStockSkipsAPI(t *testing.T) {
	site := newGraphQLSite(t, `<span class="AppButton__text">أعلمني عند توفره</span>`, rayashopPriceJSON)
	e := NewRayashop(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	got := e.Extract(context.Background(), site.srv.URL+"/ar/oven")
	assertResult(t, models.OutOfStock(), got)
	assert.Zero(t, site.apiCalls.Load())
}

func TestRayashop_UnknownProduct(t *testing.T) {
	site := newGraphQLSite(t, `<html></html>`, `{"data":{"product":null}}`)
	e := NewRayashop(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	assertResult(t, models.Unavailable(), e.Extract(context.Background(), site.srv.URL+"/ar/gone"))
}

func TestRayashop_ZeroPriceIsPrice(t *testing.T) {
	site := newGraphQLSite(t, `<html></html>`,
		`{"data":{"product":{"price_range":{"maximum_price":{"final_price":{"value":0}}}}}}`)
	e := NewRayashop(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	assertResult(t, price("0"), e.Extract(context.Background(), site.srv.URL+"/ar/free"))
}

func TestRayashopSlug(t *testing.T) {
	tests := map[string]string{
		"https://rayashop.com/ar/lg-washer-9kg":         "lg-washer-9kg",
		"https://rayashop.com/en/lg-washer-9kg?ref=x#a": "lg-washer-9kg",
		"https://rayashop.com/lg-washer-9kg.html":       "lg-washer-9kg",
	}
	for in, want := range tests {
		got, err := rayashopSlug(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := rayashopSlug("https://rayashop.com/ar/")
	assert.Error(t, err)
}

const btechPage = `<div class="product-details">
	<div class="detail"><strong>الماركة</strong><p>Samsung</p></div>
	<div class="detail"><strong>رقم الموديل:</strong><p> SM-A556E </p></div>
</div>`

func TestBTech_Price(t *testing.T) {
	site := newGraphQLSite(t, btechPage, `{"data":{"search":{"magento_catalog_product":{"items":[
		{"name":"Galaxy A55","price_range":{"minimum_price":{"final_price":{"value":18499,"currency":"EGP"}}}}]}}}}`)
	e := NewBTech(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	got := e.Extract(context.Background(), site.srv.URL+"/ar/galaxy-a55")
	assertResult(t, price("18499"), got)

	vars := site.vars()
	assert.Equal(t, "SM-A556E", vars["query"])
	assert.EqualValues(t, 1, vars["pageSize"])
	assert.EqualValues(t, 1, vars["currentPage"])
}

func TestBTech_NoModelCode(t *testing.T) {
	site := newGraphQLSite(t, `<div class="detail"><strong>الماركة</strong><p>LG</p></div>`, `{}`)
	e := NewBTech(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	assertResult(t, models.Unavailable(), e.Extract(context.Background(), site.srv.URL+"/p"))
	assert.Zero(t, site.apiCalls.Load())
}

func TestBTech_NoSearchHits(t *testing.T) {
	site := newGraphQLSite(t, btechPage, `{"data":{"search":{"magento_catalog_product":{"items":[]}}}}`)
	e := NewBTech(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	assertResult(t, models.Unavailable(), e.Extract(context.Background(), site.srv.URL+"/p"))
}

func TestBTech_BadJSON(t *testing.T) {
	site := newGraphQLSite(t, btechPage, `<html>rate limited</html>`)
	e := NewBTech(engine.NewClient(engine.ClientConfig{}), site.srv.URL+"/graphql")

	assertResult(t, models.Unavailable(), e.Extract(context.Background(), site.srv.URL+"/p"))
}
