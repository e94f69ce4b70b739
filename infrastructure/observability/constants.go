package observability

// Metric name prefixes
const (
	MetricPrefix = "betbot"
)

// Metric names
const (
	// Chat platform metrics
	UpdatesHandledTotal = MetricPrefix + ".updates.handled_total"

	// Wager metrics
	WagersLive          = MetricPrefix + ".wagers.live"
	WagersFinishedTotal = MetricPrefix + ".wagers.finished_total"
	WagerStakeTotal     = MetricPrefix + ".wagers.stake_total"
	WagerTaxTotal       = MetricPrefix + ".wagers.tax_total"

	// Deposit metrics
	DepositsTotal = MetricPrefix + ".deposits.total"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
)

// Label keys
const (
	LabelType    = "type"
	LabelOutcome = "outcome"
	LabelStatus  = "status"
	LabelResult  = "result"
)

// Update kinds
const (
	UpdateTypeMessage  = "message"
	UpdateTypeCallback = "callback"
)
