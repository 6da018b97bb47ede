package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"dcmetrics-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes readings to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port, port 4001 by
// default). The table is created by GreptimeDB on first write.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client, table: tableName, timeout: 5 * time.Second}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

// Write inserts a single reading.
func (w *GreptimeDBWriter) Write(r telemetry.Reading) error {
	return w.WriteBatch([]telemetry.Reading{r})
}

// WriteBatch inserts multiple readings in one request.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.Reading) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.buildTable(rows)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

func (w *GreptimeDBWriter) buildTable(rows []telemetry.Reading) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("zone", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("host_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("metric", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("event_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("value", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("unit", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("tags", types.JSON); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, r := range rows {
		tags := r.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return nil, err
		}
		if err := tbl.AddRow(r.Zone, r.HostID, string(r.Metric), r.EventID, r.Value, r.Unit, string(tagsJSON), r.Time()); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
