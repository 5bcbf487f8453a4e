package verify

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var cmpOptions = []cmp.Option{
	cmp.Comparer(func(a, b *big.Int) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Cmp(b) == 0
	}),
	// whole values rather than byte by byte
	cmp.Comparer(func(a, b common.Address) bool { return a == b }),
	cmp.Comparer(func(a, b common.Hash) bool { return a == b }),
	cmpopts.EquateEmpty(),
}

// diffReporter collects one line per differing leaf.
type diffReporter struct {
	path  cmp.Path
	diffs []string
}

func (r *diffReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *diffReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	msg := fmt.Sprintf("want %s, got %s", show(vx), show(vy))
	if p := r.path.String(); p != "" {
		msg = p + ": " + msg
	}
	r.diffs = append(r.diffs, msg)
}

func (r *diffReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func show(v reflect.Value) string {
	if !v.IsValid() {
		return "<missing>"
	}
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Diff lists the differences between want and got, nil when they are equal.
func Diff(want, got any) []string {
	var r diffReporter
	cmp.Equal(want, got, append(cmpOptions, cmp.Reporter(&r))...)
	return r.diffs
}
