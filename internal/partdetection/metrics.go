package partdetection

import (
	"context"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/partdetect/internal/errors"
	"github.com/tphakala/partdetect/internal/httpclient"
	"github.com/tphakala/partdetect/internal/logger"
)

// Metrics are the live counters reported by an inference module.
type Metrics struct {
	SuccessRate          float64 `json:"success_rate"`
	InferenceNum         int     `json:"inference_num"`
	UnidentifiedNum      int     `json:"unidentified_num"`
	IsGPU                bool    `json:"is_gpu"`
	AverageInferenceTime float64 `json:"average_inference_time"`
	LastPredictionCount  int     `json:"last_prediction_count"`
}

// Fetch outcomes passed to Recorder.RecordMetricsFetch.
const (
	fetchOK          = "ok"
	fetchUnreachable = "unreachable"
	fetchBadStatus   = "bad_status"
	fetchBadBody     = "bad_body"
)

// JSONGetter is the subset of *httpclient.Client used by MetricsClient.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

// MetricsClient fetches metrics from inference modules. Concurrent fetches
// of the same endpoint share one request. There are no retries.
type MetricsClient struct {
	http     JSONGetter
	group    singleflight.Group
	recorder Recorder
	log      logger.Logger
}

// NewMetricsClient creates a client. The request deadline is the caller's,
// or the default timeout of the http client.
func NewMetricsClient(client JSONGetter, recorder Recorder, log logger.Logger) *MetricsClient {
	return &MetricsClient{
		http:     client,
		recorder: orNop(recorder),
		log:      orDefaultLogger(log),
	}
}

// MetricsURL returns the metrics URL for an inference module address,
// prefixing http:// when no scheme is given.
func MetricsURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	return endpoint + "/metrics"
}

// FetchMetrics GETs {endpointURL}/metrics. Connection failures and timeouts
// yield KindInferenceModuleUnreachable; bad status codes and malformed bodies
// yield unclassified errors.
func (c *MetricsClient) FetchMetrics(ctx context.Context, endpointURL string) (*Metrics, error) {
	target := MetricsURL(endpointURL)

	// The shared request must not be cancelled by whichever caller started it.
	ch := c.group.DoChan(target, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), endpointURL, target)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		m := *res.Val.(*Metrics)
		return &m, nil
	case <-ctx.Done():
		return nil, newError(KindInferenceModuleUnreachable,
			"inference module "+endpointURL+" unreachable", ctx.Err())
	}
}

func (c *MetricsClient) fetch(ctx context.Context, endpointURL, target string) (*Metrics, error) {
	start := time.Now()
	var m Metrics
	err := c.http.GetJSON(ctx, target, &m)
	elapsed := time.Since(start)

	if err != nil {
		outcome, classified := c.classify(err, endpointURL, target)
		c.recorder.RecordMetricsFetch(elapsed, outcome)
		c.log.Warn("metrics fetch failed",
			logger.String("endpoint", logger.SanitizeURL(target)),
			logger.String("outcome", outcome),
			logger.Duration("elapsed", elapsed),
			logger.Error(err))
		return nil, classified
	}

	m.SuccessRate = truncateHundredths(m.SuccessRate)
	c.recorder.RecordMetricsFetch(elapsed, fetchOK)
	c.log.Debug("metrics fetched",
		logger.String("endpoint", logger.SanitizeURL(target)),
		logger.Float64("success_rate", m.SuccessRate),
		logger.Int("inference_num", m.InferenceNum))
	return &m, nil
}

func (c *MetricsClient) classify(err error, endpointURL, target string) (string, error) {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return fetchBadStatus, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryHTTP).
			Context("operation", "fetch_metrics").
			Context("status_code", statusErr.StatusCode).
			Build()
	}

	var decodeErr *httpclient.DecodeError
	if errors.As(err, &decodeErr) {
		return fetchBadBody, errors.New(err).
			Component("partdetection").
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_metrics").
			Build()
	}

	if isUnreachable(err) {
		return fetchUnreachable, newError(KindInferenceModuleUnreachable,
			"inference module "+endpointURL+" unreachable", err)
	}

	return fetchBadBody, errors.New(err).
		Component("partdetection").
		Category(errors.CategoryInference).
		Context("operation", "fetch_metrics").
		Context("url", target).
		Build()
}

// isUnreachable matches connection level failures, including deadline expiry.
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// truncateHundredths cuts v to two decimals without rounding.
func truncateHundredths(v float64) float64 {
	return math.Floor(v*100) / 100
}
