package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// registryABIJSON is the observable ABI of the registry/log contract (spec §6).
// The Solidity source itself is out of scope (spec §1); only this interface
// and its invariants matter.
const registryABIJSON = `[
	{"type":"function","name":"registerAgent","stateMutability":"nonpayable",
	 "inputs":[{"name":"name","type":"string"}],"outputs":[]},
	{"type":"function","name":"postSignal","stateMutability":"nonpayable",
	 "inputs":[{"name":"signalType","type":"string"},{"name":"confidence","type":"uint256"},
	           {"name":"price","type":"uint256"},{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"postPrediction","stateMutability":"nonpayable",
	 "inputs":[{"name":"direction","type":"string"},{"name":"confidence","type":"uint256"},
	           {"name":"referencePrice","type":"uint256"},{"name":"targetTimeUnixSec","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"verifyPrediction","stateMutability":"nonpayable",
	 "inputs":[{"name":"index","type":"uint256"},{"name":"actualPrice","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"agents","stateMutability":"view",
	 "inputs":[{"name":"agent","type":"address"}],
	 "outputs":[{"name":"name","type":"string"},{"name":"totalSignals","type":"uint256"},
	            {"name":"totalPredictions","type":"uint256"},{"name":"correctPredictions","type":"uint256"},
	            {"name":"lastActive","type":"uint256"},{"name":"isRegistered","type":"bool"}]},
	{"type":"function","name":"getRecentSignals","stateMutability":"view",
	 "inputs":[{"name":"count","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"getRecentPredictions","stateMutability":"view",
	 "inputs":[{"name":"count","type":"uint256"}],"outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"getAgentAccuracy","stateMutability":"view",
	 "inputs":[{"name":"agent","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"AgentRegistered","anonymous":false,
	 "inputs":[{"name":"agent","type":"address","indexed":true},{"name":"name","type":"string","indexed":false}]},
	{"type":"event","name":"SignalPosted","anonymous":false,
	 "inputs":[{"name":"agent","type":"address","indexed":true},{"name":"signalType","type":"string","indexed":false}]},
	{"type":"event","name":"PredictionPosted","anonymous":false,
	 "inputs":[{"name":"agent","type":"address","indexed":true},{"name":"direction","type":"string","indexed":false}]},
	{"type":"event","name":"PredictionVerified","anonymous":false,
	 "inputs":[{"name":"agent","type":"address","indexed":true},{"name":"correct","type":"bool","indexed":false}]}
]`

// erc20TransferABIJSON covers the ERC20 surface the whale/on-chain agents
// need: the Transfer event they filter for, and totalSupply for computing
// fraction-of-supply classifications (spec §4.6).
const erc20TransferABIJSON = `[
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},
	           {"name":"to","type":"address","indexed":true},
	           {"name":"value","type":"uint256","indexed":false}]},
	{"type":"function","name":"totalSupply","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// bondingCurveABIJSON covers the two reads Liquidity's bonding-progress
// calculation needs (spec §4.2 getBondingProgress). The curve contract's
// full surface is out of scope.
const bondingCurveABIJSON = `[
	{"type":"function","name":"reserveBalance","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"graduationThreshold","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// swapQuoterABIJSON covers the single read the Price Service's on-chain
// fallback needs (spec §4.2 step 2): given an amount-in of the wrapped
// native token, how much of tokenOut a swap would yield.
const swapQuoterABIJSON = `[
	{"type":"function","name":"getAmountOut","stateMutability":"view",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]}
]`

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}

var (
	registryABI      = mustParseABI(registryABIJSON)
	erc20TransferABI = mustParseABI(erc20TransferABIJSON)
	bondingCurveABI  = mustParseABI(bondingCurveABIJSON)
	swapQuoterABI    = mustParseABI(swapQuoterABIJSON)
)
