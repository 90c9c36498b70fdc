package wallet

// Reference prefixes per entry kind.
const (
	RefPrefixAdjustment = "ADJ"
	RefPrefixWelcome    = "WELCOME"
	RefPrefixReferral   = "REF"
	RefPrefixSpin       = "SPIN"
	RefPrefixRefund     = "REFUND"
)

const (
	noteAdminCredit = "Admin credited balance"
	noteAdminDebit  = "Admin debited balance"

	// SpinCounterparty is the source address shown on spin prizes.
	SpinCounterparty = "Spin Wheel Reward"
)

// Default pagination for history queries.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	RecentLimit         = 5
)
