// Package chains holds the immutable catalog of supported chains.
package chains

import (
	apperrors "github.com/guardianswap/bridge-middleware/pkg/app/errors"
	"github.com/guardianswap/bridge-middleware/pkg/config"
)

// Currency describes a chain's native currency.
type Currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Info describes one supported chain.
type Info struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ChainID        int64    `json:"chainId"`
	RPCURL         string   `json:"rpcUrl"`
	ExplorerURL    string   `json:"explorerUrl"`
	NativeCurrency Currency `json:"nativeCurrency"`
}

// Registry is a read-only catalog of supported chains. It is built once at
// startup from configuration and is safe for concurrent reads.
type Registry struct {
	ordered []Info
	byID    map[string]Info
}

// NewRegistry builds a registry from configuration, preserving entry order.
func NewRegistry(cfgs []config.ChainConfig) *Registry {
	ordered := make([]Info, 0, len(cfgs))
	byID := make(map[string]Info, len(cfgs))
	for _, c := range cfgs {
		info := Info{
			ID:          c.ID,
			Name:        c.Name,
			ChainID:     c.ChainID,
			RPCURL:      c.RPCURL,
			ExplorerURL: c.ExplorerURL,
			NativeCurrency: Currency{
				Name:     c.NativeCurrency.Name,
				Symbol:   c.NativeCurrency.Symbol,
				Decimals: c.NativeCurrency.Decimals,
			},
		}
		ordered = append(ordered, info)
		byID[info.ID] = info
	}
	return &Registry{ordered: ordered, byID: byID}
}

// List returns all supported chains in registry order.
func (r *Registry) List() []Info {
	out := make([]Info, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Lookup returns the chain with the given id.
func (r *Registry) Lookup(id string) (Info, error) {
	info, ok := r.byID[id]
	if !ok {
		return Info{}, apperrors.UnknownChainError(id)
	}
	return info, nil
}

// ValidatePair checks that source and target are both supported and distinct.
func (r *Registry) ValidatePair(source, target string) error {
	if _, ok := r.byID[source]; !ok {
		return apperrors.UnsupportedChainError(nil, "unsupported source chain: "+source)
	}
	if _, ok := r.byID[target]; !ok {
		return apperrors.UnsupportedChainError(nil, "unsupported target chain: "+target)
	}
	if source == target {
		return apperrors.UnsupportedChainError(nil, "source and target chain must differ")
	}
	return nil
}
