// Package metrics exposes Prometheus instrumentation for the arena and the
// ops HTTP router that serves it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"arena-bot/internal/pkg/db"
	"arena-bot/internal/service"
	"arena-bot/internal/store"
)

const namespace = "arena"

// Command outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns the registry and the command instruments.
type Metrics struct {
	Registry *prometheus.Registry

	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// PoolStatter reports connection pool usage. *db.Pool satisfies it.
type PoolStatter interface {
	Stats() db.PoolStats
}

// New creates a registry with command instruments, Go runtime collectors and
// a collector reading platform totals from st. Pool gauges are registered
// only when pool is non-nil.
func New(st *store.Store, pool PoolStatter) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Bot commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Bot command handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	reg.MustRegister(
		m.commands,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newStateCollector(st, time.Now),
	)
	if pool != nil {
		reg.MustRegister(newPoolCollector(pool))
	}
	return m
}

// ObserveCommand records one handled command.
func (m *Metrics) ObserveCommand(command, outcome string, took time.Duration) {
	m.commands.WithLabelValues(command, outcome).Inc()
	m.duration.WithLabelValues(command).Observe(took.Seconds())
}

// stateCollector reports gauges computed from the committed state at scrape time.
type stateCollector struct {
	store *store.Store
	now   func() time.Time

	users        *prometheus.Desc
	bannedUsers  *prometheus.Desc
	admins       *prometheus.Desc
	balance      *prometheus.Desc
	revenue      *prometheus.Desc
	matches      *prometheus.Desc
	pending      *prometheus.Desc
	pendingTotal *prometheus.Desc
	ledger       *prometheus.Desc
	version      *prometheus.Desc
}

func newStateCollector(st *store.Store, now func() time.Time) *stateCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &stateCollector{
		store:        st,
		now:          now,
		users:        desc("users", "Registered users."),
		bannedUsers:  desc("banned_users", "Banned users."),
		admins:       desc("admins", "Admin accounts."),
		balance:      desc("wallet_balance_total", "Sum of all user balances."),
		revenue:      desc("revenue_total", "Sum of successful non-refund deposits."),
		matches:      desc("matches", "Matches by derived status.", "status"),
		pending:      desc("pending_withdrawals", "Withdrawal requests awaiting review."),
		pendingTotal: desc("pending_withdrawal_amount", "Amount reserved by pending withdrawals."),
		ledger:       desc("ledger_entries", "Ledger entries recorded."),
		version:      desc("state_version", "Committed state version."),
	}
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.users
	ch <- c.bannedUsers
	ch <- c.admins
	ch <- c.balance
	ch <- c.revenue
	ch <- c.matches
	ch <- c.pending
	ch <- c.pendingTotal
	ch <- c.ledger
	ch <- c.version
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	st, version := c.store.Snapshot()
	t := service.Totals(st, c.now())

	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	gauge(c.users, float64(t.Users))
	gauge(c.bannedUsers, float64(t.BannedUsers))
	gauge(c.admins, float64(t.Admins))
	gauge(c.balance, t.TotalBalance.InexactFloat64())
	gauge(c.revenue, t.Revenue.InexactFloat64())
	gauge(c.matches, float64(t.UpcomingMatches), "upcoming")
	gauge(c.matches, float64(t.LiveMatches), "live")
	gauge(c.matches, float64(t.CompletedMatches), "completed")
	gauge(c.pending, float64(t.PendingWithdrawals))
	gauge(c.pendingTotal, t.PendingAmount.InexactFloat64())
	gauge(c.ledger, float64(st.Ledger().Len()))
	gauge(c.version, float64(version))
}

// poolCollector reads database pool usage at scrape time.
type poolCollector struct {
	pool PoolStatter

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

func newPoolCollector(pool PoolStatter) *poolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db", name), help, nil, nil)
	}
	return &poolCollector{
		pool:     pool,
		acquired: desc("acquired_conns", "Connections currently checked out of the pool."),
		idle:     desc("idle_conns", "Idle connections in the pool."),
		total:    desc("total_conns", "Connections open in the pool."),
		max:      desc("max_conns", "Configured pool capacity."),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.Acquired))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.Max))
}
