// Package bridge holds the static chain, token, and route tables the quote
// service works against. The tables are a hardcoded stand-in for on-chain
// configuration: real contract addresses, mock reference prices.
package bridge

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Supported chain IDs.
const (
	ChainEthereum uint64 = 1
	ChainOptimism uint64 = 10
	ChainPolygon  uint64 = 137
	ChainBoba     uint64 = 288
	ChainArbitrum uint64 = 42161
)

var (
	// ErrUnknownToken is returned for symbols outside the registry
	ErrUnknownToken = errors.New("bridge: unknown token")

	// ErrUnknownChain is returned for chain IDs outside the registry
	ErrUnknownChain = errors.New("bridge: unknown chain")

	// ErrRouteNotSupported is returned when a token cannot be bridged
	// between the requested chains
	ErrRouteNotSupported = errors.New("bridge: route not supported")
)

// Chain describes a supported network.
type Chain struct {
	ID        uint64
	Name      string
	SpokePool string // deposit contract address on this chain
}

// Token describes a bridgeable asset.
type Token struct {
	Symbol        string
	Decimals      int
	PriceUSDCents int64 // mock reference price for fee math
	IsStablecoin  bool
	Addresses     map[uint64]string // chain ID -> token contract address
}

// Route is one bridgeable origin/destination/token combination.
type Route struct {
	OriginChainID      uint64 `json:"originChainId"`
	DestinationChainID uint64 `json:"destinationChainId"`
	OriginToken        string `json:"originToken"`
	DestinationToken   string `json:"destinationToken"`
	Symbol             string `json:"symbol"`
}

// ChainRegistry maps chain IDs to their metadata.
var ChainRegistry = map[uint64]Chain{
	ChainEthereum: {
		ID:        ChainEthereum,
		Name:      "ethereum",
		SpokePool: "0x4D9079Bb4165aeb4084c526a32695dCfd2F77381",
	},
	ChainOptimism: {
		ID:        ChainOptimism,
		Name:      "optimism",
		SpokePool: "0xa420b2d1c0841415A695b81E5B867BCD07Dff8C9",
	},
	ChainPolygon: {
		ID:        ChainPolygon,
		Name:      "polygon",
		SpokePool: "0x69B5c72837769eF1e7C164Abc6515DcFf217F920",
	},
	ChainBoba: {
		ID:        ChainBoba,
		Name:      "boba",
		SpokePool: "0xBbc6009fEfFc27ce705322832Cb2068F8C1e0A58",
	},
	ChainArbitrum: {
		ID:        ChainArbitrum,
		Name:      "arbitrum",
		SpokePool: "0xB88690461dDbaB6f04Dfad7df66B7725942FEb9C",
	},
}

// TokenRegistry maps token symbols to their metadata.
var TokenRegistry = map[string]Token{
	"USDC": {
		Symbol:        "USDC",
		Decimals:      6,
		PriceUSDCents: 100,
		IsStablecoin:  true,
		Addresses: map[uint64]string{
			ChainEthereum: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			ChainOptimism: "0x7F5c764cBc14f9669B88837ca1490cCa17c31607",
			ChainPolygon:  "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
			ChainBoba:     "0x66a2A913e447d6b4BF33EFbec43aAeF87890FBbc",
			ChainArbitrum: "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8",
		},
	},
	"WETH": {
		Symbol:        "WETH",
		Decimals:      18,
		PriceUSDCents: 200_000,
		Addresses: map[uint64]string{
			ChainEthereum: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			ChainOptimism: "0x4200000000000000000000000000000000000006",
			ChainPolygon:  "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619",
			ChainBoba:     "0xDeadDeAddeAddEAddeadDEaDDEAdDeaDDeAD0000",
			ChainArbitrum: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		},
	},
	"DAI": {
		Symbol:        "DAI",
		Decimals:      18,
		PriceUSDCents: 100,
		IsStablecoin:  true,
		Addresses: map[uint64]string{
			ChainEthereum: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			ChainOptimism: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1",
			ChainPolygon:  "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063",
			ChainBoba:     "0xf74195Bb8a5cf652411867c5C2C5b8C2a402be35",
			ChainArbitrum: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1",
		},
	},
	"WBTC": {
		Symbol:        "WBTC",
		Decimals:      8,
		PriceUSDCents: 3_000_000,
		Addresses: map[uint64]string{
			ChainEthereum: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
			ChainOptimism: "0x68f180fcCe6836688e9084f035309E29Bf0A2095",
			ChainPolygon:  "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6",
			ChainBoba:     "0xdc0486f8bf31DF57a952bcd3c1d3e166e3d9eC8b",
			ChainArbitrum: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f",
		},
	},
}

// routes is the enumeration of every bridgeable combination, in deterministic
// (origin, destination, symbol) order.
var routes = buildRoutes()

func buildRoutes() []Route {
	chainIDs := slices.Sorted(maps.Keys(ChainRegistry))
	symbols := slices.Sorted(maps.Keys(TokenRegistry))

	var out []Route
	for _, origin := range chainIDs {
		for _, dest := range chainIDs {
			if origin == dest {
				continue
			}
			for _, symbol := range symbols {
				token := TokenRegistry[symbol]
				originAddr, okOrigin := token.Addresses[origin]
				destAddr, okDest := token.Addresses[dest]
				if !okOrigin || !okDest {
					continue
				}
				out = append(out, Route{
					OriginChainID:      origin,
					DestinationChainID: dest,
					OriginToken:        originAddr,
					DestinationToken:   destAddr,
					Symbol:             symbol,
				})
			}
		}
	}
	return out
}

// LookupToken resolves a token symbol, case-insensitively.
func LookupToken(symbol string) (Token, error) {
	token, ok := TokenRegistry[strings.ToUpper(symbol)]
	if !ok {
		return Token{}, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownToken, symbol, strings.Join(supportedSymbols(), ", "))
	}
	return token, nil
}

// LookupChain resolves a chain ID.
func LookupChain(id uint64) (Chain, error) {
	chain, ok := ChainRegistry[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	return chain, nil
}

// FindRoute resolves the route for bridging symbol from origin to destination.
func FindRoute(origin, destination uint64, symbol string) (Route, error) {
	if _, err := LookupChain(origin); err != nil {
		return Route{}, err
	}
	if _, err := LookupChain(destination); err != nil {
		return Route{}, err
	}
	token, err := LookupToken(symbol)
	if err != nil {
		return Route{}, err
	}

	if origin == destination {
		return Route{}, fmt.Errorf("%w: origin and destination chain are both %d", ErrRouteNotSupported, origin)
	}

	originAddr, okOrigin := token.Addresses[origin]
	destAddr, okDest := token.Addresses[destination]
	if !okOrigin || !okDest {
		return Route{}, fmt.Errorf("%w: %s from chain %d to chain %d", ErrRouteNotSupported, token.Symbol, origin, destination)
	}

	return Route{
		OriginChainID:      origin,
		DestinationChainID: destination,
		OriginToken:        originAddr,
		DestinationToken:   destAddr,
		Symbol:             token.Symbol,
	}, nil
}

// Routes returns every bridgeable route.
func Routes() []Route {
	return slices.Clone(routes)
}

// FilterRoutes returns the routes matching the given filters. A zero chain ID
// or empty symbol matches everything.
func FilterRoutes(origin, destination uint64, symbol string) []Route {
	symbol = strings.ToUpper(symbol)

	out := make([]Route, 0)
	for _, r := range routes {
		if origin != 0 && r.OriginChainID != origin {
			continue
		}
		if destination != 0 && r.DestinationChainID != destination {
			continue
		}
		if symbol != "" && r.Symbol != symbol {
			continue
		}
		out = append(out, r)
	}
	return out
}

func supportedSymbols() []string {
	return slices.Sorted(maps.Keys(TokenRegistry))
}
