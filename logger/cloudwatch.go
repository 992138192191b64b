package logger

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxDatumsPerPut keeps each PutMetricData call within the API limit.
const maxDatumsPerPut = 20

type metricsAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	PutDashboard(ctx context.Context, in *cloudwatch.PutDashboardInput, opts ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error)
}

type cloudWatchSink struct {
	api       metricsAPI
	namespace string
	dashboard string
}

// sink is nil until InitCloudWatch succeeds; publishing is a no-op until then.
var sink atomic.Pointer[cloudWatchSink]

// InitCloudWatch enables metric publishing. An empty region falls back to
// AWS_REGION; empty namespace and dashboard default to "KrakenFlow". Failure
// leaves publishing disabled.
func InitCloudWatch(region, namespace, dashboard string) {
	log := GetLogger().WithComponent("cloudwatch")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}
	s := newCloudWatchSink(cloudwatch.NewFromConfig(cfg), namespace, dashboard)
	sink.Store(s)
	log.WithFields(Fields{"region": region, "namespace": s.namespace}).Info("initialized CloudWatch client")

	if err := s.putDashboard(ctx); err != nil {
		log.WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}

func newCloudWatchSink(api metricsAPI, namespace, dashboard string) *cloudWatchSink {
	if namespace == "" {
		namespace = "KrakenFlow"
	}
	if dashboard == "" {
		dashboard = "KrakenFlow"
	}
	return &cloudWatchSink{api: api, namespace: namespace, dashboard: dashboard}
}

func publishMetrics(ctx context.Context, data []cwtypes.MetricDatum) {
	s := sink.Load()
	if s == nil || len(data) == 0 {
		return
	}
	if err := s.put(ctx, data); err != nil {
		GetLogger().WithComponent("cloudwatch").WithError(err).Warn("failed to publish CloudWatch metrics")
	}
}

func (s *cloudWatchSink) put(ctx context.Context, data []cwtypes.MetricDatum) error {
	for start := 0; start < len(data); start += maxDatumsPerPut {
		end := min(start+maxDatumsPerPut, len(data))
		if _, err := s.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: data[start:end],
		}); err != nil {
			return err
		}
	}
	return nil
}

type dashboardWidget struct {
	Type       string           `json:"type"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Properties widgetProperties `json:"properties"`
}

type widgetProperties struct {
	Metrics [][]string `json:"metrics"`
	Period  int        `json:"period"`
	Stat    string     `json:"stat"`
	Title   string     `json:"title"`
}

func (s *cloudWatchSink) widget(title, stat string, names ...string) dashboardWidget {
	metrics := make([][]string, len(names))
	for i, n := range names {
		metrics[i] = []string{s.namespace, metricPrefix + n}
	}
	return dashboardWidget{
		Type:   "metric",
		Width:  24,
		Height: 6,
		Properties: widgetProperties{
			Metrics: metrics,
			Period:  60,
			Stat:    stat,
			Title:   "KrakenFlow " + title,
		},
	}
}

func (s *cloudWatchSink) dashboardBody() (string, error) {
	body, err := json.Marshal(map[string][]dashboardWidget{
		"widgets": {
			s.widget("System", "Average", "CPUPercent", "MemoryMB", "DiskMB"),
			s.widget("Pipeline", "Maximum", "Publications", "Responses", "DecodeFailures", "RestCalls", "S3Writes"),
		},
	})
	return string(body), err
}

func (s *cloudWatchSink) putDashboard(ctx context.Context) error {
	body, err := s.dashboardBody()
	if err != nil {
		return err
	}
	_, err = s.api.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(s.dashboard),
		DashboardBody: aws.String(body),
	})
	return err
}
