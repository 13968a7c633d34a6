package marketdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundval/fundval-backend/internal/marketdata"
)

func newEastmoneyServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

// TestEastmoneyClient_FetchLive tests the JSONP live-estimate parser.
//
// WHY: The endpoint wraps JSON in a jsonpgz() call and encodes every
// number as a string; the parser has to unwrap both layers.
func TestEastmoneyClient_FetchLive(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a live payload", func(t *testing.T) {
		server := newEastmoneyServer(t,
			`jsonpgz({"fundcode":"000001","name":"Alpha Fund","dwjz":"1.5000","gsz":"1.5200","gszzl":"1.33","gztime":"2025-06-05 14:30"});`)
		client := marketdata.NewEastmoneyClient(time.Second, 100,
			marketdata.WithEastmoneyBaseURLs(server.URL+"/js/%s.js", server.URL+"/pingzhongdata/%s.js", server.URL+"/list"))

		v, err := client.FetchLive(ctx, "000001")
		if err != nil {
			t.Fatalf("FetchLive failed: %v", err)
		}

		if v.Name != "Alpha Fund" {
			t.Errorf("Expected name Alpha Fund, got %q", v.Name)
		}
		if v.Nav != 1.5 || v.Estimate != 1.52 || v.EstimateRate != 1.33 {
			t.Errorf("Expected 1.5/1.52/1.33, got %v/%v/%v", v.Nav, v.Estimate, v.EstimateRate)
		}
		if v.Source != "eastmoney" {
			t.Errorf("Expected source eastmoney, got %q", v.Source)
		}
	})

	t.Run("rejects a non-JSONP payload", func(t *testing.T) {
		server := newEastmoneyServer(t, `<html>blocked</html>`)
		client := marketdata.NewEastmoneyClient(time.Second, 100,
			marketdata.WithEastmoneyBaseURLs(server.URL+"/js/%s.js", server.URL+"/pingzhongdata/%s.js", server.URL+"/list"))

		if _, err := client.FetchLive(ctx, "000001"); err == nil {
			t.Error("Expected an error for a malformed payload")
		}
	})

	t.Run("fails on a non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(server.Close)
		client := marketdata.NewEastmoneyClient(time.Second, 100,
			marketdata.WithEastmoneyBaseURLs(server.URL+"/js/%s.js", server.URL+"/pingzhongdata/%s.js", server.URL+"/list"))

		if _, err := client.FetchLive(ctx, "000001"); err == nil {
			t.Error("Expected an error for status 503")
		}
	})
}

// TestEastmoneyClient_FetchHistory tests the pingzhongdata NAV series
// parser.
//
// WHY: Settlement NAVs come out of this series; the unix-millisecond
// timestamps must map onto the right calendar dates.
func TestEastmoneyClient_FetchHistory(t *testing.T) {
	ctx := context.Background()

	// 2025-06-04 and 2025-06-05 UTC midnights in unix milliseconds
	server := newEastmoneyServer(t,
		`var Data_ACWorthTrend = [];var Data_netWorthTrend = [{"x":1749009600000,"y":1.48,"equityReturn":0.68},{"x":1749096000000,"y":1.50,"equityReturn":1.35}];var Data_grandTotal = [];`)
	client := marketdata.NewEastmoneyClient(time.Second, 100,
		marketdata.WithEastmoneyBaseURLs(server.URL+"/js/%s.js", server.URL+"/pingzhongdata/%s.js", server.URL+"/list"))

	points, err := client.FetchHistory(ctx, "000001")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}

	if len(points) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(points))
	}
	if points[0].Date != "2025-06-04" || points[0].Nav != 1.48 {
		t.Errorf("Expected 2025-06-04 at 1.48, got %+v", points[0])
	}
	if points[1].Date != "2025-06-05" || points[1].Nav != 1.50 {
		t.Errorf("Expected 2025-06-05 at 1.50, got %+v", points[1])
	}
}

// TestEastmoneyClient_FetchFundList tests the catalogue parser.
func TestEastmoneyClient_FetchFundList(t *testing.T) {
	ctx := context.Background()

	server := newEastmoneyServer(t,
		`var r = [["000001","HXCZ","Alpha Fund","混合型","HUAXIACHENGZHANG"],["","","","",""],["000003","ZXB","Beta Fund","股票型","BETA"]];`)
	client := marketdata.NewEastmoneyClient(time.Second, 100,
		marketdata.WithEastmoneyBaseURLs(server.URL+"/js/%s.js", server.URL+"/pingzhongdata/%s.js", server.URL+"/list"))

	funds, err := client.FetchFundList(ctx)
	if err != nil {
		t.Fatalf("FetchFundList failed: %v", err)
	}

	if len(funds) != 2 {
		t.Fatalf("Expected 2 entries with the codeless row dropped, got %d", len(funds))
	}
	if funds[0].Code != "000001" || funds[0].Name != "Alpha Fund" || funds[0].Type != "混合型" {
		t.Errorf("Expected Alpha Fund entry, got %+v", funds[0])
	}
}
