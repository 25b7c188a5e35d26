package server

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxapi "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// InfluxConfig is the InfluxDB configuration
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Influx is an InfluxDB v2 publisher of numeric states
type Influx struct {
	log    *util.Logger
	clock  clock.Clock
	client influxdb2.Client
	writer influxapi.WriteAPI
}

// NewInfluxClient creates new publisher for influx
func NewInfluxClient(conf InfluxConfig) *Influx {
	log := util.NewLogger("influx")

	client := influxdb2.NewClientWithOptions(conf.URL, conf.Token, influxdb2.DefaultOptions().SetBatchSize(64))

	writer := client.WriteAPI(conf.Org, conf.Bucket)

	go func() {
		for err := range writer.Errors() {
			log.ERROR.Println(err)
		}
	}()

	return &Influx{
		log:    log,
		clock:  clock.New(),
		client: client,
		writer: writer,
	}
}

// points converts numeric states into one point per state key tagged by entity
func points(entity string, states []api.State, ts time.Time) []*write.Point {
	var res []*write.Point

	for _, s := range states {
		var val float64

		switch v := s.Value.(type) {
		case float64:
			val = v
		case float32:
			val = float64(v)
		case int:
			val = float64(v)
		case int64:
			val = float64(v)
		case int32:
			val = float64(v)
		default:
			continue
		}

		p := influxdb2.NewPoint(s.Key,
			map[string]string{"entity": entity},
			map[string]interface{}{"value": val},
			ts,
		)

		res = append(res, p)
	}

	return res
}

// UpdateStates implements api.Sink. Non-numeric states are not written.
func (m *Influx) UpdateStates(entity string, states []api.State) error {
	for _, p := range points(entity, states, m.clock.Now()) {
		m.log.TRACE.Printf("write %s %s", entity, p.Name())
		m.writer.WritePoint(p)
	}

	return nil
}

// Close flushes pending points and closes the client
func (m *Influx) Close() {
	m.writer.Flush()
	m.client.Close()
}
