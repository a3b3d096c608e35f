package detect

import (
	"context"
	"sync/atomic"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/oracle"
)

type fakeOracle struct {
	classify func(sample []oracle.Row) (oracle.RowClassification, error)
	headers  func(window []oracle.Row, anchor int) ([]int, error)
	split    func(sample []oracle.Row) (oracle.SplitProposal, error)

	calls atomic.Int32
}

func (f *fakeOracle) ClassifyRows(_ context.Context, sample []oracle.Row) (oracle.RowClassification, error) {
	f.calls.Add(1)
	if f.classify == nil {
		return oracle.RowClassification{}, oracle.ErrUnavailable
	}
	return f.classify(sample)
}

func (f *fakeOracle) DetectMultiLevelHeaders(_ context.Context, window []oracle.Row, anchor int) ([]int, error) {
	f.calls.Add(1)
	if f.headers == nil {
		return nil, oracle.ErrUnavailable
	}
	return f.headers(window, anchor)
}

func (f *fakeOracle) DetectSchemaSplit(_ context.Context, sample []oracle.Row) (oracle.SplitProposal, error) {
	f.calls.Add(1)
	if f.split == nil {
		return oracle.SplitProposal{}, oracle.ErrUnavailable
	}
	return f.split(sample)
}
