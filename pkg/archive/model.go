package archive

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderDao is the database model for one archived terminal order. Bridge and
// swap orders share the table; kind discriminates, unused columns stay null.
type OrderDao struct {
	bun.BaseModel `bun:"table:archived_orders"`

	ID     string `bun:"id,pk"`
	Kind   string `bun:"kind,notnull"`
	Status string `bun:"status,notnull"`

	SourceChain string `bun:"source_chain"`
	TargetChain string `bun:"target_chain"`
	Recipient   string `bun:"recipient"`

	TokenIn  string `bun:"token_in"`
	TokenOut string `bun:"token_out"`

	Amount          string `bun:"amount"`
	MinAmountOut    string `bun:"min_amount_out"`
	TxHash          string `bun:"tx_hash"`
	ExecutionTxHash string `bun:"execution_tx_hash"`
	FailureReason   string `bun:"failure_reason"`

	CreatedAt   time.Time  `bun:"created_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at"`
	Deadline    *time.Time `bun:"deadline"`
	ArchivedAt  time.Time  `bun:"archived_at,notnull,default:current_timestamp"`
}
