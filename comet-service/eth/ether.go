package eth

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

func GweiToWei(gwei float64) (*big.Int, error) {
	if math.IsNaN(gwei) || math.IsInf(gwei, 0) || gwei < 0 {
		return nil, fmt.Errorf("invalid gwei value: %v", gwei)
	}
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(params.GWei)).Int(nil)
	if wei.Cmp(abi.MaxUint256) == 1 {
		return nil, errors.New("gwei value larger than max uint256")
	}
	return wei, nil
}

var (
	weiPerGWei = uint256.NewInt(params.GWei)
	weiPerEth  = uint256.NewInt(params.Ether)
)

// ETH is an amount of wei, used for the value a governance action forwards
// (bridge deposits, retryable ticket fees). Methods return new values.
type ETH uint256.Int

var (
	ZeroWei = WeiU64(0)
	OneGWei = GWei(1)
	OneEth  = Ether(1)
)

func WeiU64(wei uint64) ETH {
	return ETH(*uint256.NewInt(wei))
}

func GWei(gwei uint64) ETH {
	var out uint256.Int
	out.Mul(uint256.NewInt(gwei), weiPerGWei)
	return ETH(out)
}

func Ether(ether uint64) ETH {
	var out uint256.Int
	out.Mul(uint256.NewInt(ether), weiPerEth)
	return ETH(out)
}

// WeiBig converts a non-negative big.Int that fits in 256 bits.
func WeiBig(wei *big.Int) (ETH, error) {
	if wei == nil {
		return ZeroWei, nil
	}
	v, overflow := uint256.FromBig(wei)
	if overflow || wei.Sign() < 0 {
		return ZeroWei, fmt.Errorf("wei amount out of range: %s", wei)
	}
	return ETH(*v), nil
}

func MustWeiBig(wei *big.Int) ETH {
	v, err := WeiBig(wei)
	if err != nil {
		panic(err)
	}
	return v
}

// String prints whole ether or gwei amounts in those units, anything else in wei.
func (e ETH) String() string {
	v := (*uint256.Int)(&e)
	if v.IsZero() {
		return "0 wei"
	}
	var q, r uint256.Int
	q.DivMod(v, weiPerEth, &r)
	if r.IsZero() {
		return q.PrettyDec(',') + " ether"
	}
	q.DivMod(v, weiPerGWei, &r)
	if r.IsZero() {
		return q.PrettyDec(',') + " gwei"
	}
	return v.PrettyDec(',') + " wei"
}

func (e ETH) ToBig() *big.Int {
	return (*uint256.Int)(&e).ToBig()
}

func (e ETH) ToU256() *uint256.Int {
	return (*uint256.Int)(&e).Clone()
}

func (e ETH) IsZero() bool {
	return (*uint256.Int)(&e).IsZero()
}

func (e ETH) Lt(v ETH) bool {
	return (*uint256.Int)(&e).Lt((*uint256.Int)(&v))
}

// Add panics on overflow.
func (e ETH) Add(v ETH) (out ETH) {
	if _, overflow := (*uint256.Int)(&out).AddOverflow((*uint256.Int)(&e), (*uint256.Int)(&v)); overflow {
		panic(fmt.Errorf("add overflow: %s + %s", e, v))
	}
	return
}

// Mul panics on overflow.
func (e ETH) Mul(scalar uint64) (out ETH) {
	if _, overflow := (*uint256.Int)(&out).MulOverflow((*uint256.Int)(&e), uint256.NewInt(scalar)); overflow {
		panic(fmt.Errorf("mul overflow: %s * %d", e, scalar))
	}
	return
}

// MulDiv returns e*num/den rounded down, for applying fractional buffers like 3/2.
func (e ETH) MulDiv(num, den uint64) (out ETH) {
	if den == 0 {
		panic("division by zero")
	}
	if _, overflow := (*uint256.Int)(&out).MulDivOverflow((*uint256.Int)(&e), uint256.NewInt(num), uint256.NewInt(den)); overflow {
		panic(fmt.Errorf("muldiv overflow: %s * %d / %d", e, num, den))
	}
	return
}

func (e ETH) MarshalText() ([]byte, error) {
	return (*uint256.Int)(&e).MarshalText()
}

func (e *ETH) UnmarshalText(data []byte) error {
	return (*uint256.Int)(e).UnmarshalText(data)
}
