package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"fritzbox-exporter/internal/helper"
	"fritzbox-exporter/internal/metrics"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 5 * time.Second

var (
	scrapeDurationDesc = helper.ExporterDescription(
		"scrape_duration_seconds", "fritzbox_exporter: duration of a scrape",
		nil,
	)
	callSuccessDesc = helper.ExporterDescription(
		"call_success", "fritzbox_exporter: whether a remote call succeeded",
		[]string{"call"},
	)
)

// Collector queries the device on every scrape and maps the responses to
// metrics according to the definition table. Remote calls are never retried
// within a scrape and raw values are never kept between scrapes.
type Collector struct {
	defs          []*metrics.Definition
	groups        []metrics.Group
	descs         map[string]*prometheus.Desc
	client        Client
	timeout       time.Duration
	scrapeMetrics bool
}

// New creates a collector for the definitions in table, served by client.
func New(table *metrics.Table, client Client, opts ...Option) *Collector {
	c := &Collector{
		defs:    table.All(),
		groups:  table.Groups(),
		descs:   make(map[string]*prometheus.Desc, table.Len()),
		client:  client,
		timeout: DefaultTimeout,
	}

	for _, o := range opts {
		o(c)
	}

	for _, d := range c.defs {
		c.descs[d.Name] = helper.Description(d.Name, d.Help, nil)
	}

	log.WithFields(log.Fields{
		"definitions": len(c.defs),
		"calls":       len(c.groups),
	}).Info("setting up collector")

	return c
}

// Scrape performs one remote call per group of definitions and returns the
// outcome of every definition. It never fails as a whole.
func (c *Collector) Scrape(ctx context.Context) Result {
	res, _ := c.scrape(ctx)
	return res
}

func (c *Collector) scrape(ctx context.Context) (Result, []error) {
	res := make(Result, len(c.defs))
	errs := make([]error, len(c.groups))

	for i, g := range c.groups {
		errs[i] = c.scrapeGroup(ctx, g, res)
	}

	return res, errs
}

func (c *Collector) scrapeGroup(ctx context.Context, g metrics.Group, res Result) error {
	fields, err := c.call(ctx, g.Call)
	if err != nil {
		log.WithFields(log.Fields{
			"call":  g.Call.String(),
			"error": err,
		}).Error("error fetching metrics")

		for _, d := range g.Definitions {
			res[d.Name] = Value{Kind: d.Kind, Err: err}
		}
		return err
	}

	for _, d := range g.Definitions {
		res[d.Name] = convert(d, fields)
	}

	return nil
}

func (c *Collector) call(ctx context.Context, call metrics.RemoteCall) (fields map[string]string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			fields, err = nil, fmt.Errorf("remote call panicked: %v", r)
		}
	}()

	return c.client.Call(ctx, call.Service, call.Action)
}

func convert(d *metrics.Definition, fields map[string]string) (v Value) {
	v.Kind = d.Kind

	raw, ok := fields[d.Field]
	if !ok {
		v.Err = fmt.Errorf("%w: %s", ErrFieldMissing, d.Field)
		log.WithFields(log.Fields{
			"metric": d.Name,
			"field":  d.Field,
		}).Warn("field missing in response")
		return v
	}

	defer func() {
		if r := recover(); r != nil {
			v.Err = fmt.Errorf("converting %s: %v", d.Field, r)
		}
	}()

	f, err := d.Convert(raw)
	if err != nil {
		log.WithFields(log.Fields{
			"metric": d.Name,
			"field":  d.Field,
			"value":  raw,
			"error":  err,
		}).Error("error parsing metric value")
		v.Err = err
		return v
	}

	v.Value = f
	return v
}

// Describe implements the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.defs {
		ch <- c.descs[d.Name]
	}

	if c.scrapeMetrics {
		ch <- scrapeDurationDesc
		ch <- callSuccessDesc
	}
}

// Collect implements the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	begin := time.Now()

	res, errs := c.scrape(context.Background())

	for _, d := range c.defs {
		v := res[d.Name]
		if v.Absent() {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.descs[d.Name], d.Kind.ValueType(), v.Value)
	}

	duration := time.Since(begin)
	log.WithFields(log.Fields{
		"present":  res.Present(),
		"total":    len(res),
		"duration": duration.Seconds(),
	}).Debug("scrape done")

	if !c.scrapeMetrics {
		return
	}

	for i, g := range c.groups {
		var success float64
		if errs[i] == nil {
			success = 1
		}
		ch <- prometheus.MustNewConstMetric(callSuccessDesc, prometheus.GaugeValue, success, g.Call.String())
	}
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, duration.Seconds())
}
