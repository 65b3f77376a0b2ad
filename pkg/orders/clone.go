package orders

// Snapshots returned to callers never alias manager-owned state.

func cloneBridge(o *BridgeOrder) *BridgeOrder {
	out := *o
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		out.CompletedAt = &t
	}
	if o.TxHash != nil {
		h := *o.TxHash
		out.TxHash = &h
	}
	if o.FailureReason != nil {
		r := *o.FailureReason
		out.FailureReason = &r
	}
	if o.Deadline != nil {
		t := *o.Deadline
		out.Deadline = &t
	}
	return &out
}

func cloneSwap(o *SwapOrder) *SwapOrder {
	out := *o
	if o.TxHash != nil {
		h := *o.TxHash
		out.TxHash = &h
	}
	if o.ExecutionTxHash != nil {
		h := *o.ExecutionTxHash
		out.ExecutionTxHash = &h
	}
	if o.FailureReason != nil {
		r := *o.FailureReason
		out.FailureReason = &r
	}
	return &out
}
