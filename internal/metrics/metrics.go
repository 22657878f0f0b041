package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "soundbyte"

type Metrics struct {
	registry *prometheus.Registry

	roomsCreated prometheus.Counter
	gamesStarted prometheus.Counter
	gamesEnded   *prometheus.CounterVec
	guesses      *prometheus.CounterVec
	commands     *prometheus.CounterVec
	connections  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created through the realtime API.",
		}),
		gamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Multiplayer games started.",
		}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_ended_total",
			Help:      "Multiplayer games ended, by whether the host forced the end.",
		}, []string{"forced"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Evaluated multiplayer guesses.",
		}, []string{"correct"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_commands_total",
			Help:      "Realtime commands handled, by event and outcome.",
		}, []string{"event", "ok"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket connections.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roomsCreated,
		m.gamesStarted,
		m.gamesEnded,
		m.guesses,
		m.commands,
		m.connections,
	)
	return m
}

func (m *Metrics) RoomCreated() { m.roomsCreated.Inc() }
func (m *Metrics) GameStarted() { m.gamesStarted.Inc() }

func (m *Metrics) GameEnded(forced bool) {
	m.gamesEnded.WithLabelValues(strconv.FormatBool(forced)).Inc()
}

func (m *Metrics) GuessEvaluated(correct bool) {
	m.guesses.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) CommandHandled(event string, ok bool) {
	m.commands.WithLabelValues(event, strconv.FormatBool(ok)).Inc()
}

func (m *Metrics) ConnectionOpened() { m.connections.Inc() }
func (m *Metrics) ConnectionClosed() { m.connections.Dec() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
