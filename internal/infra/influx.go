// README: InfluxDB client initialization for the event time series.
package infra

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// NewInflux builds a client and fails unless the instance reports healthy.
func NewInflux(ctx context.Context, url, token string) (influxdb2.Client, error) {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influx health %s: %w", base, err)
	}
	if health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("influx health %s: status %s", base, health.Status)
	}
	return client, nil
}
