package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/xraph/fundme"
	"github.com/xraph/fundme/api"
	"github.com/xraph/fundme/campaign"
	"github.com/xraph/fundme/contribution"
	"github.com/xraph/fundme/event"
	"github.com/xraph/fundme/id"
	"github.com/xraph/fundme/oracle"
	"github.com/xraph/fundme/store/memory"
	"github.com/xraph/fundme/sweep"
)

var (
	owner = fundme.MustAddress("0x1000000000000000000000000000000000000001")
	alice = fundme.MustAddress("0x2000000000000000000000000000000000000002")
	bob   = fundme.MustAddress("0x3000000000000000000000000000000000000003")
)

type fixture struct {
	engine *fundme.Engine
	clock  *clockwork.FakeClock
	ledger *fundme.Ledger
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	e := fundme.New(memory.New(),
		fundme.WithClock(clock),
		fundme.WithOracle(oracle.NewDefaultMock()),
	)
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() { _ = e.Stop() })

	l, err := e.Deploy(ctx, campaign.Params{
		Name:       "roof repairs",
		Owner:      owner,
		Window:     180 * time.Second,
		MinimumUSD: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	_, err = l.Contribute(ctx, alice, fundme.MustEther("0.5"))
	require.NoError(t, err)
	_, err = l.Contribute(ctx, bob, fundme.MustEther("1"))
	require.NoError(t, err)
	_, err = l.Contribute(ctx, alice, fundme.MustEther("0.25"))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(api.New(e,
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	))
	t.Cleanup(srv.Close)

	return &fixture{engine: e, clock: clock, ledger: l, server: srv}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func post(t *testing.T, url string, body, out any) int {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) writeServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(api.New(f.engine, api.WithWrites()))
	t.Cleanup(srv.Close)
	return srv.URL + "/campaigns/" + f.ledger.ID().String()
}

func TestGetCampaign(t *testing.T) {
	f := newFixture(t)
	path := "/campaigns/" + f.ledger.ID().String()

	var c api.CampaignResponse
	require.Equal(t, http.StatusOK, f.get(t, path, &c))
	assert.Equal(t, "roof repairs", c.Name)
	assert.Equal(t, owner.Hex(), c.Owner)
	assert.Equal(t, int64(180), c.WindowSeconds)
	assert.Equal(t, campaign.StateOpen, c.State)
	assert.Equal(t, "5.00", c.MinimumUSD)
	assert.Equal(t, "1750000000000000000", c.TotalContributed)
	assert.Equal(t, "1750000000000000000", c.Held)

	f.clock.Advance(200 * time.Second)
	_, err := f.ledger.Sweep(context.Background(), owner)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, f.get(t, path, &c))
	assert.Equal(t, campaign.StateClosed, c.State)
	assert.Equal(t, "1750000000000000000", c.TotalSwept)
	assert.Equal(t, "0", c.Held)
}

func TestListCampaigns(t *testing.T) {
	f := newFixture(t)

	var all []api.CampaignResponse
	require.Equal(t, http.StatusOK, f.get(t, "/campaigns", &all))
	require.Len(t, all, 1)
	assert.Equal(t, f.ledger.ID().String(), all[0].ID)

	var none []api.CampaignResponse
	require.Equal(t, http.StatusOK, f.get(t, "/campaigns?owner="+alice.Hex(), &none))
	assert.Empty(t, none)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/campaigns?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/campaigns?owner=nope", nil))
}

func TestBalanceOf(t *testing.T) {
	f := newFixture(t)
	base := "/campaigns/" + f.ledger.ID().String() + "/balances/"

	var b api.BalanceResponse
	require.Equal(t, http.StatusOK, f.get(t, base+alice.Hex(), &b))
	assert.Equal(t, "750000000000000000", b.Wei)
	assert.Equal(t, "0.75", b.Ether)

	require.Equal(t, http.StatusOK, f.get(t, base+owner.Hex(), &b))
	assert.Equal(t, "0", b.Wei)

	assert.Equal(t, http.StatusBadRequest, f.get(t, base+"0x123", nil))
}

func TestEventsSince(t *testing.T) {
	f := newFixture(t)
	path := "/campaigns/" + f.ledger.ID().String() + "/events"

	var evs []event.Event
	require.Equal(t, http.StatusOK, f.get(t, path, &evs))
	require.Len(t, evs, 3)
	assert.Equal(t, uint64(1), evs[0].Seq)
	assert.Equal(t, event.KindContribution, evs[0].Kind)

	require.Equal(t, http.StatusOK, f.get(t, path+"?since=2", &evs))
	require.Len(t, evs, 1)
	assert.Equal(t, uint64(3), evs[0].Seq)

	require.Equal(t, http.StatusOK, f.get(t, path+"?since=9", &evs))
	assert.Empty(t, evs)

	assert.Equal(t, http.StatusBadRequest, f.get(t, path+"?since=x", nil))
}

func TestContributionsAndSweeps(t *testing.T) {
	f := newFixture(t)
	base := "/campaigns/" + f.ledger.ID().String()

	var cs []contribution.Contribution
	require.Equal(t, http.StatusOK, f.get(t, base+"/contributions?contributor="+alice.Hex(), &cs))
	require.Len(t, cs, 2)
	assert.Equal(t, "500000000000000000", cs[0].Amount.String())
	assert.True(t, cs[0].USDValue.Equal(decimal.NewFromInt(1500)))

	var ss []map[string]any
	require.Equal(t, http.StatusOK, f.get(t, base+"/sweeps", &ss))
	assert.Empty(t, ss)
}

func TestNotFoundAndBadID(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/campaigns/"+id.NewCampaignID().String(), nil))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/campaigns/"+id.NewCampaignID().String()+"/sweeps", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/campaigns/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/campaigns/"+id.NewSweepID().String(), nil))
}

func TestQuote(t *testing.T) {
	f := newFixture(t)

	var q api.QuoteResponse
	require.Equal(t, http.StatusOK, f.get(t, "/quote?amount_wei=1000000000000000000", &q))
	assert.Equal(t, "3000.00", q.USD)
	assert.Equal(t, "3000", q.Price)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/quote?amount_wei=abc", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/quote?amount_wei=-1000000000000000000", nil))
}

func TestContributeRoute(t *testing.T) {
	f := newFixture(t)
	base := f.writeServer(t)

	var c contribution.Contribution
	require.Equal(t, http.StatusCreated, post(t, base+"/contributions", api.ContributeRequest{
		Caller:    bob.Hex(),
		AmountWei: "500000000000000000",
	}, &c))
	assert.Equal(t, bob, c.Contributor)
	assert.Equal(t, "500000000000000000", c.Amount.String())
	assert.Equal(t, "1500000000000000000", f.ledger.BalanceOf(bob).String())
	assert.Equal(t, "2250000000000000000", f.ledger.HeldBalance().String())

	tests := []struct {
		name string
		body any
		want int
	}{
		{"below minimum", api.ContributeRequest{Caller: bob.Hex(), AmountWei: "1000000000000000"}, http.StatusUnprocessableEntity},
		{"negative amount", api.ContributeRequest{Caller: bob.Hex(), AmountWei: "-1"}, http.StatusUnprocessableEntity},
		{"zero caller", api.ContributeRequest{Caller: "0x0000000000000000000000000000000000000000", AmountWei: "500000000000000000"}, http.StatusBadRequest},
		{"bad caller", api.ContributeRequest{Caller: "0x123", AmountWei: "1"}, http.StatusBadRequest},
		{"bad amount", api.ContributeRequest{Caller: bob.Hex(), AmountWei: "lots"}, http.StatusBadRequest},
		{"bad body", "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, post(t, base+"/contributions", tt.body, nil))
		})
	}
	assert.Equal(t, "2250000000000000000", f.ledger.HeldBalance().String())

	f.clock.Advance(200 * time.Second)
	assert.Equal(t, http.StatusConflict, post(t, base+"/contributions", api.ContributeRequest{
		Caller:    bob.Hex(),
		AmountWei: "500000000000000000",
	}, nil))
	assert.Equal(t, "1500000000000000000", f.ledger.BalanceOf(bob).String())
}

func TestSweepRoute(t *testing.T) {
	f := newFixture(t)
	base := f.writeServer(t)

	assert.Equal(t, http.StatusForbidden, post(t, base+"/sweep", api.SweepRequest{Caller: alice.Hex()}, nil))
	assert.Equal(t, http.StatusConflict, post(t, base+"/sweep", api.SweepRequest{Caller: owner.Hex()}, nil))
	assert.Equal(t, http.StatusBadRequest, post(t, base+"/sweep", api.SweepRequest{Caller: "owner"}, nil))

	f.clock.Advance(200 * time.Second)
	assert.Equal(t, http.StatusForbidden, post(t, base+"/sweep", api.SweepRequest{Caller: alice.Hex()}, nil))

	var s sweep.Sweep
	require.Equal(t, http.StatusOK, post(t, base+"/sweep", api.SweepRequest{Caller: owner.Hex()}, &s))
	assert.Equal(t, owner, s.Owner)
	assert.Equal(t, "1750000000000000000", s.Amount.String())
	assert.Equal(t, "0", f.ledger.HeldBalance().String())
	assert.Equal(t, "750000000000000000", f.ledger.BalanceOf(alice).String())

	var ss []sweep.Sweep
	require.Equal(t, http.StatusOK, post(t, base+"/sweep", api.SweepRequest{Caller: owner.Hex()}, nil))
	require.Equal(t, http.StatusOK, f.get(t, "/campaigns/"+f.ledger.ID().String()+"/sweeps", &ss))
	assert.Len(t, ss, 2)
}

func TestWritesDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	base := f.server.URL + "/campaigns/" + f.ledger.ID().String()

	assert.Equal(t, http.StatusMethodNotAllowed, post(t, base+"/contributions", api.ContributeRequest{
		Caller:    bob.Hex(),
		AmountWei: "500000000000000000",
	}, nil))
	assert.Equal(t, http.StatusNotFound, post(t, base+"/sweep", api.SweepRequest{Caller: owner.Hex()}, nil))
	assert.Equal(t, "1000000000000000000", f.ledger.BalanceOf(bob).String())
}

func TestWriteRouteUnknownCampaign(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(api.New(f.engine, api.WithWrites()))
	defer srv.Close()

	url := srv.URL + "/campaigns/" + id.NewCampaignID().String() + "/sweep"
	assert.Equal(t, http.StatusNotFound, post(t, url, api.SweepRequest{Caller: owner.Hex()}, nil))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	var body map[string]string
	require.Equal(t, http.StatusOK, f.get(t, "/health", &body))
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(api.New(f.engine, api.WithRateLimit(rate.Every(time.Hour), 2)))
	defer srv.Close()

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
