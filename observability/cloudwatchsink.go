package observability

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// CloudWatchAPI defines the CloudWatch operations used by CloudWatchSink.
// This interface enables testing with mock implementations.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSinkConfig configures where a CloudWatchSink publishes.
type CloudWatchSinkConfig struct {
	Namespace string
}

// CloudWatchSink gathers a Prometheus registry's current values each time
// Publish is called and republishes them as CloudWatch metrics, for
// deployments without a scrape-based collector in front of the gateway. It
// runs no timer of its own.
type CloudWatchSink struct {
	client   CloudWatchAPI
	config   CloudWatchSinkConfig
	gatherer prometheus.Gatherer
}

// NewCloudWatchSink creates a sink from AWS config.
func NewCloudWatchSink(awsCfg aws.Config, config CloudWatchSinkConfig, gatherer prometheus.Gatherer) *CloudWatchSink {
	return NewCloudWatchSinkWithClient(cloudwatch.NewFromConfig(awsCfg), config, gatherer)
}

// NewCloudWatchSinkWithClient creates a sink with a custom client (for testing).
func NewCloudWatchSinkWithClient(client CloudWatchAPI, config CloudWatchSinkConfig, gatherer prometheus.Gatherer) *CloudWatchSink {
	return &CloudWatchSink{client: client, config: config, gatherer: gatherer}
}

// Publish gathers the current metric families and ships their counter and
// gauge values to CloudWatch in PutMetricData calls of at most 20 data points
// each. Histogram families are skipped: CloudWatch has no native histogram
// shape and the gateway's text exposition endpoint remains the source of
// truth for latency distributions. Failures are logged and swallowed, matching
// the fail-open pattern used by the rest of this module's telemetry path; a
// failed call stops the remaining batches of that Publish.
func (s *CloudWatchSink) Publish(ctx context.Context) {
	families, err := s.gatherer.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch: gather metrics: %v\n", err)
		return
	}

	now := time.Now()
	var data []types.MetricDatum
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value, ok := metricValue(family.GetType(), metric)
			if !ok {
				continue
			}
			data = append(data, types.MetricDatum{
				MetricName: aws.String(family.GetName()),
				Value:      aws.Float64(value),
				Timestamp:  aws.Time(now),
				Dimensions: labelDimensions(metric),
			})
		}
	}
	if len(data) == 0 {
		return
	}

	const maxBatch = 20
	for start := 0; start < len(data); start += maxBatch {
		end := start + maxBatch
		if end > len(data) {
			end = len(data)
		}
		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.config.Namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "cloudwatch PutMetricData error: %v\n", err)
			return
		}
	}
}

func metricValue(kind dto.MetricType, metric *dto.Metric) (float64, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}

func labelDimensions(metric *dto.Metric) []types.Dimension {
	labels := metric.GetLabel()
	dims := make([]types.Dimension, 0, len(labels))
	for _, l := range labels {
		dims = append(dims, types.Dimension{
			Name:  aws.String(l.GetName()),
			Value: aws.String(l.GetValue()),
		})
	}
	return dims
}
