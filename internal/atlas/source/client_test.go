package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		DistrictURL:       baseURL,
		BulkURL:           baseURL,
		OutlineURL:        baseURL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
}

// TestDistrictGeometry_RequestPathAndDecode verifies the per-district
// record is addressed by (vintage, state, label) and a Feature payload
// decodes to its geometry.
func TestDistrictGeometry_RequestPathAndDecode(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"type":"Feature","properties":{"district":"14"},
			"geometry":{"type":"Polygon","coordinates":[[[-74,40],[-73,40],[-73,41],[-74,41],[-74,40]]]}}`))
	}))
	defer srv.Close()

	geom, err := testClient(srv.URL).DistrictGeometry(context.Background(), 2022, "NY", "14")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/2022/NY/14.geojson" {
		t.Errorf("request path = %s, want /2022/NY/14.geojson", gotPath)
	}
	if geom == nil {
		t.Fatal("expected a decoded geometry")
	}
}

// TestStateCollection_RangeLabelKey verifies the bulk file is keyed by
// underscored state name plus the vintage-derived range label, and
// district labels are recovered from the features.
func TestStateCollection_RangeLabelKey(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"DISTRICT":"1"},
			 "geometry":{"type":"Polygon","coordinates":[[[-79,40],[-78,40],[-78,41],[-79,41],[-79,40]]]}},
			{"type":"Feature","properties":{"DISTRICT":"2"},
			 "geometry":{"type":"Polygon","coordinates":[[[-77,40],[-76,40],[-76,41],[-77,41],[-77,40]]]}}]}`))
	}))
	defer srv.Close()

	features, err := testClient(srv.URL).StateCollection(context.Background(), 1962, "NY")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/New_York_1962_to_1972.geojson" {
		t.Errorf("request path = %s, want /New_York_1962_to_1972.geojson", gotPath)
	}
	if len(features) != 2 || features[0].Label != "1" || features[1].Label != "2" {
		t.Errorf("unexpected features: %+v", features)
	}
}

// TestStateOutline_BareGeometryPayload verifies an outline served as a
// bare geometry (no feature wrapper) still normalizes.
func TestStateOutline_BareGeometryPayload(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"type":"Polygon","coordinates":[[[-73,43],[-72,43],[-72,45],[-73,45],[-73,43]]]}`))
	}))
	defer srv.Close()

	geom, err := testClient(srv.URL).StateOutline(context.Background(), "VT")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotPath != "/Vermont.geojson" {
		t.Errorf("request path = %s, want /Vermont.geojson", gotPath)
	}
	if geom == nil {
		t.Fatal("expected a decoded geometry")
	}
}

// TestGet_NonOKStatusIsAnError verifies a 404 surfaces as
// ErrUpstreamStatus so callers treat it as a step failure.
func TestGet_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).DistrictGeometry(context.Background(), 2022, "NY", "99")
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("err = %v, want ErrUpstreamStatus", err)
	}
}
