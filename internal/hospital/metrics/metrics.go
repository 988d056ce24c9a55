package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the hospital module. Tracks hospital
// creation, ledger movements and the duration of the payroll critical path.
type Metrics struct {
	HospitalsCreated prometheus.Counter
	DepositedTotal   prometheus.Counter
	PayrollTotal     prometheus.Counter
	ExpensesTotal    prometheus.Counter
	PayStaffDuration prometheus.Histogram
}

// New creates a new Metrics instance with all hospital module metrics registered.
func New() *Metrics {
	return &Metrics{
		HospitalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medledger_hospitals_created_total",
			Help: "Total number of hospitals created",
		}),
		DepositedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medledger_deposited_amount_total",
			Help: "Total amount deposited into hospital balances, in minor units",
		}),
		PayrollTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medledger_payroll_amount_total",
			Help: "Total amount moved from hospital balances to staff, in minor units",
		}),
		ExpensesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medledger_expenses_amount_total",
			Help: "Total amount paid out as expenses, in minor units",
		}),
		PayStaffDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medledger_pay_staff_duration_seconds",
			Help:    "Duration of PayStaff operations (ledger critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementHospitalsCreated records a successful hospital creation.
func (m *Metrics) IncrementHospitalsCreated() {
	m.HospitalsCreated.Inc()
}

// AddDeposited records a completed deposit.
func (m *Metrics) AddDeposited(amount uint64) {
	m.DepositedTotal.Add(float64(amount))
}

// AddPayroll records a completed staff payment.
func (m *Metrics) AddPayroll(amount uint64) {
	m.PayrollTotal.Add(float64(amount))
}

// AddExpense records a completed expense payment.
func (m *Metrics) AddExpense(amount uint64) {
	m.ExpensesTotal.Add(float64(amount))
}

// ObservePayStaff records the duration of a PayStaff operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePayStaff(start time.Time) {
	m.PayStaffDuration.Observe(time.Since(start).Seconds())
}
