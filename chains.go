package x402

import "fmt"

// NetworkType represents the chain family a network belongs to.
type NetworkType int

const (
	// NetworkTypeUnknown represents an unrecognized network.
	NetworkTypeUnknown NetworkType = iota
	// NetworkTypeEVM represents Ethereum Virtual Machine chains.
	NetworkTypeEVM
	// NetworkTypeTON represents The Open Network.
	NetworkTypeTON
	// NetworkTypeTron represents TRON chains.
	NetworkTypeTron
)

// ChainConfig contains chain-specific configuration for a supported network:
// the chain id where applicable, the default stablecoin, and the EIP-712
// domain parameters needed for EIP-3009 signing on EVM chains.
type ChainConfig struct {
	// NetworkID is the x402 protocol network identifier (e.g., "base", "ton").
	NetworkID string

	// Type is the chain family.
	Type NetworkType

	// ChainID is the numeric chain id for EVM and TRON networks, 0 for TON.
	ChainID int64

	// DefaultAsset is the network's default stablecoin.
	DefaultAsset TokenConfig

	// EIP3009Version is the EIP-712 domain "version" of the default asset
	// (empty for non-EVM chains). The domain "name" is DefaultAsset.Name.
	EIP3009Version string
}

// Supported chain configurations. Stablecoin addresses were taken from the
// issuers' published deployment lists.
var (
	// BaseMainnet is the configuration for Base mainnet.
	BaseMainnet = ChainConfig{
		NetworkID: "base",
		Type:      NetworkTypeEVM,
		ChainID:   8453,
		DefaultAsset: TokenConfig{
			Address:  "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USD Coin",
		},
		EIP3009Version: "2",
	}

	// BaseSepolia is the configuration for the Base Sepolia testnet.
	BaseSepolia = ChainConfig{
		NetworkID: "base-sepolia",
		Type:      NetworkTypeEVM,
		ChainID:   84532,
		DefaultAsset: TokenConfig{
			Address:  "0x036cbd53842c5426634e7929541ec2318f3dcf7e",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USDC",
		},
		EIP3009Version: "2",
	}

	// PolygonMainnet is the configuration for Polygon PoS mainnet.
	PolygonMainnet = ChainConfig{
		NetworkID: "polygon",
		Type:      NetworkTypeEVM,
		ChainID:   137,
		DefaultAsset: TokenConfig{
			Address:  "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USD Coin",
		},
		EIP3009Version: "2",
	}

	// AvalancheMainnet is the configuration for Avalanche C-Chain mainnet.
	AvalancheMainnet = ChainConfig{
		NetworkID: "avalanche",
		Type:      NetworkTypeEVM,
		ChainID:   43114,
		DefaultAsset: TokenConfig{
			Address:  "0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e",
			Symbol:   "USDC",
			Decimals: 6,
			Name:     "USD Coin",
		},
		EIP3009Version: "2",
	}

	// TONMainnet is the configuration for TON mainnet. The default asset is
	// the USDT jetton master.
	TONMainnet = ChainConfig{
		NetworkID: "ton",
		Type:      NetworkTypeTON,
		DefaultAsset: TokenConfig{
			Address:  "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs",
			Symbol:   "USDT",
			Decimals: 6,
			Name:     "Tether USD",
		},
	}

	// TONTestnet is the configuration for TON testnet.
	TONTestnet = ChainConfig{
		NetworkID: "ton-testnet",
		Type:      NetworkTypeTON,
		DefaultAsset: TokenConfig{
			Address:  "kQD0GKBM8ZbryVk2aESmzfU6b9b_8era_IkvBSELujFZPsyy",
			Symbol:   "USDT",
			Decimals: 6,
			Name:     "Tether USD",
		},
	}

	// TronMainnet is the configuration for TRON mainnet. The default asset is
	// the TRC20 USDT contract.
	TronMainnet = ChainConfig{
		NetworkID: "tron",
		Type:      NetworkTypeTron,
		ChainID:   728126428,
		DefaultAsset: TokenConfig{
			Address:  "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			Symbol:   "USDT",
			Decimals: 6,
			Name:     "Tether USD",
		},
	}

	// TronNile is the configuration for the TRON Nile testnet.
	TronNile = ChainConfig{
		NetworkID: "tron-nile",
		Type:      NetworkTypeTron,
		ChainID:   3448148188,
		DefaultAsset: TokenConfig{
			Address:  "TXYZopYRdj2D9XRtbG411XZZ3kM5VkAeBf",
			Symbol:   "USDT",
			Decimals: 6,
			Name:     "Tether USD",
		},
	}
)

// chainConfigs indexes every supported network by its protocol identifier.
var chainConfigs = map[string]ChainConfig{
	BaseMainnet.NetworkID:      BaseMainnet,
	BaseSepolia.NetworkID:      BaseSepolia,
	PolygonMainnet.NetworkID:   PolygonMainnet,
	AvalancheMainnet.NetworkID: AvalancheMainnet,
	TONMainnet.NetworkID:       TONMainnet,
	TONTestnet.NetworkID:       TONTestnet,
	TronMainnet.NetworkID:      TronMainnet,
	TronNile.NetworkID:         TronNile,
}

// GetChainConfig returns the configuration for a network identifier.
func GetChainConfig(networkID string) (ChainConfig, error) {
	config, ok := chainConfigs[networkID]
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, networkID)
	}
	return config, nil
}

// NetworkTypeOf returns the chain family of a network identifier, or
// NetworkTypeUnknown with an error for unrecognized networks.
func NetworkTypeOf(networkID string) (NetworkType, error) {
	config, err := GetChainConfig(networkID)
	if err != nil {
		return NetworkTypeUnknown, err
	}
	return config.Type, nil
}

// DefaultAssetFor returns the default stablecoin for a network.
func DefaultAssetFor(networkID string) (TokenConfig, error) {
	config, err := GetChainConfig(networkID)
	if err != nil {
		return TokenConfig{}, err
	}
	return config.DefaultAsset, nil
}
