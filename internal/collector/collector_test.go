package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"fritzbox-exporter/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	addonInfos = metrics.RemoteCall{Service: "WANCommonIFC", Action: "GetAddonInfoResponse"}
	deviceInfo = metrics.RemoteCall{Service: "DeviceInfo", Action: "GetInfoResponse"}
)

type fakeClient struct {
	mu        sync.Mutex
	responses map[metrics.RemoteCall]map[string]string
	errs      map[metrics.RemoteCall]error
	hang      map[metrics.RemoteCall]bool
	panics    map[metrics.RemoteCall]bool
	calls     map[metrics.RemoteCall]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: map[metrics.RemoteCall]map[string]string{
			addonInfos: {"bytes_sent": "100", "bytes_received": "200"},
			deviceInfo: {"uptime": "3600", "model": "7590"},
		},
		errs:   make(map[metrics.RemoteCall]error),
		hang:   make(map[metrics.RemoteCall]bool),
		panics: make(map[metrics.RemoteCall]bool),
		calls:  make(map[metrics.RemoteCall]int),
	}
}

func (f *fakeClient) Call(ctx context.Context, service, action string) (map[string]string, error) {
	rc := metrics.RemoteCall{Service: service, Action: action}

	f.mu.Lock()
	f.calls[rc]++
	resp, err, hang, panics := f.responses[rc], f.errs[rc], f.hang[rc], f.panics[rc]
	f.mu.Unlock()

	if panics {
		panic("boom")
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(resp))
	for k, v := range resp {
		out[k] = v
	}
	return out, nil
}

func (f *fakeClient) set(rc metrics.RemoteCall, fields map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[rc] = fields
}

func (f *fakeClient) callsTo(rc metrics.RemoteCall) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rc]
}

func testTable(t *testing.T, extra ...metrics.Definition) *metrics.Table {
	t.Helper()

	defs := append([]metrics.Definition{
		{Name: "wan_bytes_sent", Help: "Bytes sent", Kind: metrics.Counter, Call: addonInfos, Field: "bytes_sent"},
		{Name: "wan_bytes_received", Help: "Bytes received", Kind: metrics.Counter, Call: addonInfos, Field: "bytes_received"},
		{Name: "uptime_seconds", Help: "Uptime", Kind: metrics.Counter, Call: deviceInfo, Field: "uptime"},
		{Name: "model_number", Help: "Model", Kind: metrics.Gauge, Call: deviceInfo, Field: "model"},
	}, extra...)

	table, err := metrics.NewTable(defs...)
	require.NoError(t, err)
	return table
}

func assertValue(t *testing.T, res Result, name string, want float64, kind metrics.Kind) {
	t.Helper()

	v, ok := res[name]
	require.True(t, ok, "no entry for %s", name)
	require.False(t, v.Absent(), "%s is absent: %v", name, v.Err)
	assert.Equal(t, want, v.Value, name)
	assert.Equal(t, kind, v.Kind, name)
}

func assertAbsent(t *testing.T, res Result, name string) {
	t.Helper()

	v, ok := res[name]
	require.True(t, ok, "no entry for %s", name)
	assert.True(t, v.Absent(), "%s should be absent", name)
}

func TestScrapeGroupsRemoteCalls(t *testing.T) {
	client := newFakeClient()
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())

	assertValue(t, res, "wan_bytes_sent", 100, metrics.Counter)
	assertValue(t, res, "wan_bytes_received", 200, metrics.Counter)
	assertValue(t, res, "uptime_seconds", 3600, metrics.Counter)
	assertValue(t, res, "model_number", 7590, metrics.Gauge)
	assert.Equal(t, 4, res.Present())

	assert.Equal(t, 1, client.callsTo(addonInfos))
	assert.Equal(t, 1, client.callsTo(deviceInfo))
}

func TestScrapeTimeoutIsolatesGroup(t *testing.T) {
	client := newFakeClient()
	client.hang[deviceInfo] = true
	c := New(testTable(t), client, WithTimeout(50*time.Millisecond))

	begin := time.Now()
	res := c.Scrape(context.Background())
	assert.Less(t, time.Since(begin), 2*time.Second)

	assertValue(t, res, "wan_bytes_sent", 100, metrics.Counter)
	assertValue(t, res, "wan_bytes_received", 200, metrics.Counter)
	assertAbsent(t, res, "uptime_seconds")
	assertAbsent(t, res, "model_number")
	assert.ErrorIs(t, res["uptime_seconds"].Err, context.DeadlineExceeded)
}

func TestScrapeMissingFieldOnlyAffectsDefinition(t *testing.T) {
	client := newFakeClient()
	client.set(deviceInfo, map[string]string{"model": "7590"})
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())

	assertAbsent(t, res, "uptime_seconds")
	assert.ErrorIs(t, res["uptime_seconds"].Err, ErrFieldMissing)
	assertValue(t, res, "model_number", 7590, metrics.Gauge)
	assertValue(t, res, "wan_bytes_sent", 100, metrics.Counter)
}

func TestScrapeFailedCallAbsentsWholeGroup(t *testing.T) {
	client := newFakeClient()
	failure := errors.New("connection refused")
	client.errs[addonInfos] = failure
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())

	assertAbsent(t, res, "wan_bytes_sent")
	assertAbsent(t, res, "wan_bytes_received")
	assert.ErrorIs(t, res["wan_bytes_sent"].Err, failure)
	assertValue(t, res, "uptime_seconds", 3600, metrics.Counter)
	assertValue(t, res, "model_number", 7590, metrics.Gauge)
}

func TestScrapeDoesNotRetry(t *testing.T) {
	client := newFakeClient()
	client.errs[addonInfos] = errors.New("unreachable")
	client.hang[deviceInfo] = true
	c := New(testTable(t), client, WithTimeout(20*time.Millisecond))

	c.Scrape(context.Background())

	assert.Equal(t, 1, client.callsTo(addonInfos))
	assert.Equal(t, 1, client.callsTo(deviceInfo))
}

func TestScrapeAllFailed(t *testing.T) {
	client := newFakeClient()
	client.errs[addonInfos] = errors.New("unreachable")
	client.errs[deviceInfo] = errors.New("unreachable")
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())
	assert.Len(t, res, 4)
	assert.Equal(t, 0, res.Present())

	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestScrapeDoesNotCacheValues(t *testing.T) {
	client := newFakeClient()
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())
	assertValue(t, res, "wan_bytes_sent", 100, metrics.Counter)

	client.set(addonInfos, map[string]string{"bytes_sent": "150"})

	res = c.Scrape(context.Background())
	assertValue(t, res, "wan_bytes_sent", 150, metrics.Counter)
	assertAbsent(t, res, "wan_bytes_received")
	assert.Equal(t, 2, client.callsTo(addonInfos))
}

func TestScrapeConversionFailure(t *testing.T) {
	client := newFakeClient()
	client.set(deviceInfo, map[string]string{"uptime": "3600", "model": "unknown", "link": "Up"})
	table := testTable(t,
		metrics.Definition{
			Name: "link_up", Kind: metrics.Gauge, Call: deviceInfo, Field: "link",
			Convert: metrics.Enum(map[string]float64{"Up": 1}),
		},
		metrics.Definition{
			Name: "broken", Kind: metrics.Gauge, Call: deviceInfo, Field: "uptime",
			Convert: func(string) (float64, error) { panic("bad converter") },
		},
	)
	c := New(table, client)

	res := c.Scrape(context.Background())

	assertAbsent(t, res, "model_number")
	assertAbsent(t, res, "broken")
	assertValue(t, res, "link_up", 1, metrics.Gauge)
	assertValue(t, res, "uptime_seconds", 3600, metrics.Counter)
}

func TestScrapeClientPanic(t *testing.T) {
	client := newFakeClient()
	client.panics[deviceInfo] = true
	c := New(testTable(t), client)

	res := c.Scrape(context.Background())

	assertAbsent(t, res, "uptime_seconds")
	assertAbsent(t, res, "model_number")
	assertValue(t, res, "wan_bytes_sent", 100, metrics.Counter)
}

func TestCollectExposition(t *testing.T) {
	client := newFakeClient()
	client.hang[deviceInfo] = true
	c := New(testTable(t), client, WithTimeout(20*time.Millisecond))

	expected := `
# HELP wan_bytes_received Bytes received
# TYPE wan_bytes_received counter
wan_bytes_received 200
# HELP wan_bytes_sent Bytes sent
# TYPE wan_bytes_sent counter
wan_bytes_sent 100
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected))
	assert.NoError(t, err)
}

func TestCollectNamesAreSubsetOfTable(t *testing.T) {
	client := newFakeClient()
	client.errs[deviceInfo] = errors.New("unreachable")
	table := testTable(t)
	c := New(table, client)

	known := make(map[string]bool)
	for _, d := range table.All() {
		known[d.Name] = true
	}

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, mf := range families {
		assert.True(t, known[mf.GetName()], "unknown metric %s", mf.GetName())
		assert.False(t, seen[mf.GetName()], "duplicate metric %s", mf.GetName())
		seen[mf.GetName()] = true
		assert.Len(t, mf.GetMetric(), 1)
	}
	assert.Len(t, seen, 2)
}

func TestCollectScrapeMetrics(t *testing.T) {
	client := newFakeClient()
	client.errs[deviceInfo] = errors.New("unreachable")
	c := New(testTable(t), client, WithScrapeMetrics())

	expected := `
# HELP fritzbox_exporter_call_success fritzbox_exporter: whether a remote call succeeded
# TYPE fritzbox_exporter_call_success gauge
fritzbox_exporter_call_success{call="DeviceInfo#GetInfoResponse"} 0
fritzbox_exporter_call_success{call="WANCommonIFC#GetAddonInfoResponse"} 1
`

	err := testutil.CollectAndCompare(c, strings.NewReader(expected), "fritzbox_exporter_call_success")
	assert.NoError(t, err)
	assert.Equal(t, 5, testutil.CollectAndCount(c))
}

func TestConcurrentScrapes(t *testing.T) {
	client := newFakeClient()
	c := New(testTable(t), client)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	const scrapes = 16

	var wg sync.WaitGroup
	errs := make(chan error, scrapes)
	for i := 0; i < scrapes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			families, err := reg.Gather()
			if err == nil && len(families) != 4 {
				err = errors.New("incomplete scrape")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, scrapes, client.callsTo(addonInfos))
	assert.Equal(t, scrapes, client.callsTo(deviceInfo))
}
